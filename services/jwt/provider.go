package jwt

import (
	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"go.uber.org/fx"
)

func NewJWTService(cfg *config.Config, logger *logging.Service) *Service {
	return NewService(cfg, logger)
}

var Module = fx.Options(
	fx.Provide(NewJWTService),
)
