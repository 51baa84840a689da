package userdir

import (
	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"github.com/tech-arch1tect/otpkit/services/otp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideDirectory(cfg *config.Config, db *gorm.DB, otpSvc *otp.Service, logger *logging.Service) *Directory {
	directory := NewDirectory(cfg, db, otpSvc, logger)
	otpSvc.SetUserDirectory(directory)
	return directory
}

var Module = fx.Options(
	fx.Provide(ProvideDirectory),
)
