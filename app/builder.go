package app

import (
	"fmt"

	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/database"
	"github.com/tech-arch1tect/otpkit/httpapi"
	"github.com/tech-arch1tect/otpkit/middleware/ratelimit"
	"github.com/tech-arch1tect/otpkit/server"
	"github.com/tech-arch1tect/otpkit/services/jwt"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"github.com/tech-arch1tect/otpkit/services/mail"
	"github.com/tech-arch1tect/otpkit/services/otp"
	"github.com/tech-arch1tect/otpkit/services/userdir"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// AppBuilder assembles an application from opt-in services. Every With*
// call records intent; Build validates the combination and wires the
// dependency graph.
type AppBuilder struct {
	config    *config.Config
	services  map[string]bool
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		services:  make(map[string]bool),
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithDatabase(models ...any) *AppBuilder {
	b.services["database"] = true
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithMail() *AppBuilder {
	b.services["mail"] = true
	return b
}

// WithOTP enables code issuance and verification. The otps table is
// migrated automatically.
func (b *AppBuilder) WithOTP() *AppBuilder {
	b.services["otp"] = true
	b.services["database"] = true
	b.models = append(b.models, &otp.OTP{})
	return b
}

// WithUserDirectory enables account-backed flows: login gating, OTP login
// and password reset. The users table is migrated automatically.
func (b *AppBuilder) WithUserDirectory() *AppBuilder {
	b.services["userdir"] = true
	b.services["otp"] = true
	b.services["database"] = true
	b.models = append(b.models, &otp.OTP{}, &userdir.User{})
	return b
}

func (b *AppBuilder) WithJWT() *AppBuilder {
	b.services["jwt"] = true
	return b
}

// WithHTTPAPI mounts the /auth endpoints on the built-in server.
func (b *AppBuilder) WithHTTPAPI() *AppBuilder {
	b.services["httpapi"] = true
	b.services["userdir"] = true
	b.services["otp"] = true
	b.services["database"] = true
	b.services["jwt"] = true
	b.models = append(b.models, &otp.OTP{}, &userdir.User{})
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	}

	logger, err := b.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	services, err := b.buildServices(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build services: %w", err)
	}

	fxOptions := b.buildFxOptions(services, logger)

	app := &App{
		config: b.config,
		logger: logger,
		db:     services.database,
	}

	fxOptions = append(fxOptions, fx.Invoke(func(srv *server.Server) {
		app.server = srv
	}))

	if b.services["otp"] {
		fxOptions = append(fxOptions, fx.Invoke(func(otpSvc *otp.Service) {
			app.otpSvc = otpSvc
		}))
	}
	if b.services["userdir"] {
		fxOptions = append(fxOptions, fx.Invoke(func(directory *userdir.Directory) {
			app.directory = directory
		}))
	}

	app.fx = fx.New(fxOptions...)

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}

	if b.services["userdir"] && !b.services["otp"] {
		return fmt.Errorf("user directory requires OTP support")
	}

	if b.services["httpapi"] && !b.services["jwt"] {
		return fmt.Errorf("HTTP API requires JWT support")
	}

	if b.services["otp"] && !b.services["database"] {
		b.services["database"] = true
	}

	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config required for logger creation")
	}

	return logging.NewService(logging.Config{
		Level:      logging.LogLevel(b.config.Log.Level),
		Format:     b.config.Log.Format,
		OutputPath: b.config.Log.Output,
	})
}

type ServiceContainer struct {
	database *gorm.DB
}

func (b *AppBuilder) buildServices(logger *logging.Service) (*ServiceContainer, error) {
	services := &ServiceContainer{}

	if b.services["database"] {
		modelsOpt := &database.ModelsOption{}
		if len(b.models) > 0 {
			modelsOpt = database.WithModels(b.models...)
		}

		db, err := database.ProvideDatabase(*b.config, modelsOpt, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		services.database = db
	}

	return services, nil
}

func (b *AppBuilder) buildFxOptions(services *ServiceContainer, logger *logging.Service) []fx.Option {
	var options []fx.Option

	options = append(options,
		fx.Supply(b.config),
		fx.Supply(logger),
		fx.NopLogger,
	)

	if services.database != nil {
		options = append(options, fx.Supply(services.database))
	}

	options = append(options, server.NewProvider())
	options = append(options, ratelimit.Module)

	if b.services["mail"] {
		options = append(options, mail.Module)
	}
	if b.services["otp"] {
		options = append(options, otp.Module)
	}
	if b.services["userdir"] {
		options = append(options, userdir.Module)
	}
	if b.services["jwt"] {
		options = append(options, jwt.Module)
	}
	if b.services["httpapi"] {
		options = append(options, httpapi.Module)
	}

	if b.services["mail"] && b.services["otp"] {
		options = append(options, fx.Invoke(func(otpSvc *otp.Service, mailSvc *mail.Service) {
			otpSvc.SetMailer(mailSvc)
		}))
	}

	options = append(options, b.fxOptions...)

	return options
}
