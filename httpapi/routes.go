package httpapi

import (
	jwtmw "github.com/tech-arch1tect/otpkit/middleware/jwt"
	"github.com/tech-arch1tect/otpkit/middleware/ratelimit"
	"github.com/tech-arch1tect/otpkit/server"
	"go.uber.org/fx"
)

// RegisterRoutes mounts the OTP endpoints. The whole /auth group sits
// behind the per-client fixed-window limiter.
func RegisterRoutes(srv *server.Server, h *Handlers, store ratelimit.Store) {
	auth := srv.Group("/auth")
	auth.Use(ratelimit.FromConfig(&h.config.RateLimit, store))

	auth.POST("/otp/request", h.RequestOTP)
	auth.POST("/otp/verify", h.VerifyOTP)
	auth.POST("/otp/resend", h.ResendOTP)
	auth.GET("/otp/status", h.OTPStatus)

	auth.POST("/login/otp", h.LoginWithOTP)
	auth.POST("/password-reset/request", h.RequestPasswordReset)
	auth.POST("/password-reset/complete", h.CompletePasswordReset)

	me := srv.Group("/me")
	me.Use(jwtmw.RequireJWT(h.jwtSvc))
	me.GET("", h.CurrentUser)
}

var Module = fx.Options(
	fx.Provide(NewHandlers),
	fx.Invoke(RegisterRoutes),
)
