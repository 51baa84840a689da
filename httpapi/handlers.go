package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/otpkit/config"
	jwtmw "github.com/tech-arch1tect/otpkit/middleware/jwt"
	"github.com/tech-arch1tect/otpkit/services/jwt"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"github.com/tech-arch1tect/otpkit/services/otp"
	"github.com/tech-arch1tect/otpkit/services/userdir"
	"go.uber.org/zap"
)

type Handlers struct {
	config    *config.Config
	otpSvc    *otp.Service
	directory *userdir.Directory
	jwtSvc    *jwt.Service
	logger    *logging.Service
}

func NewHandlers(cfg *config.Config, otpSvc *otp.Service, directory *userdir.Directory, jwtSvc *jwt.Service, logger *logging.Service) *Handlers {
	return &Handlers{
		config:    cfg,
		otpSvc:    otpSvc,
		directory: directory,
		jwtSvc:    jwtSvc,
		logger:    logger,
	}
}

type otpRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type otpVerifyRequest struct {
	Email   string `json:"email"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}

type loginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetCompleteRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// RequestOTP issues a fresh code for the given email and purpose. Denials
// share one response body so the caller cannot tell a bad address from a
// rate limited or unknown one; only an active wait time is surfaced.
func (h *Handlers) RequestOTP(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	_, err := h.otpSvc.Issue(req.Email, otp.Purpose(req.Purpose), requestContext(c))
	if err != nil {
		return h.issueError(c, req.Email, otp.Purpose(req.Purpose), err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "verification code sent",
	})
}

// ResendOTP replaces the caller's current code when policy allows it.
func (h *Handlers) ResendOTP(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	_, err := h.otpSvc.Resend(req.Email, otp.Purpose(req.Purpose))
	if err != nil {
		return h.issueError(c, req.Email, otp.Purpose(req.Purpose), err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "verification code sent",
	})
}

// VerifyOTP consumes a submitted code. Every failure mode maps to the same
// response.
func (h *Handlers) VerifyOTP(c echo.Context) error {
	var req otpVerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	_, err := h.otpSvc.Verify(req.Email, req.Code, otp.Purpose(req.Purpose))
	if err != nil {
		if errors.Is(err, otp.ErrVerifyFailed) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired verification code")
		}
		return h.internalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message":  "code verified",
		"verified": true,
	})
}

// OTPStatus reports whether a pending code exists and how long the caller
// must wait before requesting another. It never reveals the code and never
// consumes attempts.
func (h *Handlers) OTPStatus(c echo.Context) error {
	email := c.QueryParam("email")
	purpose := otp.Purpose(c.QueryParam("purpose"))

	status := map[string]any{
		"pending":          false,
		"rate_limited":     h.otpSvc.RateLimited(email, purpose),
		"cooldown_minutes": h.otpSvc.CooldownMinutes(email, purpose),
	}

	record, err := h.otpSvc.Latest(email, purpose)
	if err == nil && !record.Used && !record.IsExpired() {
		status["pending"] = true
		status["expires_at"] = record.ExpiresAt
		status["attempts_remaining"] = max(h.config.OTP.MaxAttempts-record.Attempts, 0)
	}

	return c.JSON(http.StatusOK, status)
}

// LoginWithOTP verifies a LOGIN code and returns a signed access token.
func (h *Handlers) LoginWithOTP(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.directory.CompleteOTPLogin(req.Email, req.Code)
	if err != nil {
		if errors.Is(err, otp.ErrVerifyFailed) || errors.Is(err, userdir.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired verification code")
		}
		return h.internalError(c, err)
	}

	token, err := h.jwtSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return h.internalError(c, err)
	}

	if h.logger != nil {
		h.logger.Info("login token issued",
			zap.Uint("user_id", user.ID),
			zap.String("browser", BrowserSummary(c.Request().UserAgent())))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": h.jwtSvc.GetAccessExpirySeconds(),
		"user": map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// RequestPasswordReset starts the reset flow. Unknown emails get the same
// success response as known ones so the endpoint cannot be used to test
// which addresses have accounts.
func (h *Handlers) RequestPasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.directory.InitiatePasswordReset(req.Email, requestContext(c))
	if err != nil {
		if errors.Is(err, userdir.ErrAccountInactive) {
			return echo.NewHTTPError(http.StatusForbidden, "account is not active")
		}
		if errors.Is(err, otp.ErrIssueDenied) {
			return h.issueError(c, req.Email, otp.PurposePasswordReset, err)
		}
		return h.internalError(c, err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "if the email exists, a reset code has been sent",
	})
}

// CompletePasswordReset consumes a reset code and sets the new password.
func (h *Handlers) CompletePasswordReset(c echo.Context) error {
	var req passwordResetCompleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.directory.CompletePasswordReset(req.Email, req.Code, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, userdir.ErrPasswordTooShort):
			return echo.NewHTTPError(http.StatusBadRequest, "password is too short")
		case errors.Is(err, otp.ErrVerifyFailed), errors.Is(err, userdir.ErrUserNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired verification code")
		default:
			return h.internalError(c, err)
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "password updated",
	})
}

// CurrentUser returns the account behind a valid access token.
func (h *Handlers) CurrentUser(c echo.Context) error {
	claims := jwtmw.GetClaims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid JWT token")
	}

	user, err := h.directory.FindByEmail(claims.Email)
	if err != nil {
		if errors.Is(err, userdir.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
		}
		return h.internalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"active":        user.Active,
		"last_login_at": user.LastLoginAt,
	})
}

func (h *Handlers) issueError(c echo.Context, email string, purpose otp.Purpose, err error) error {
	if errors.Is(err, otp.ErrIssueDenied) {
		if minutes := h.otpSvc.CooldownMinutes(email, purpose); minutes > 0 {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error":            "please wait before requesting a new code",
				"cooldown_minutes": minutes,
			})
		}
		return echo.NewHTTPError(http.StatusBadRequest, "unable to send verification code")
	}
	return h.internalError(c, err)
}

func (h *Handlers) internalError(c echo.Context, err error) error {
	if h.logger != nil {
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("path", c.Path()))
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
