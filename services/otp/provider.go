package otp

import (
	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideOTPService(db *gorm.DB, cfg *config.Config, logger *logging.Service) *Service {
	store := NewStore(db, cfg, logger)
	limiter := NewLimiter(store, cfg, logger)
	service := NewService(cfg, store, limiter, logger)

	if cfg.OTP.CleanupInterval > 0 {
		service.StartCleanupWorker()
	}

	return service
}

var Module = fx.Options(
	fx.Provide(ProvideOTPService),
)
