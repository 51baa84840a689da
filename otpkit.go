package otpkit

import (
	"github.com/tech-arch1tect/otpkit/app"
	"github.com/tech-arch1tect/otpkit/config"
)

type App = app.App

func New() *app.AppBuilder {
	return app.NewApp()
}

func WithConfig(cfg *config.Config) *app.AppBuilder {
	return app.NewApp().WithConfig(cfg)
}
