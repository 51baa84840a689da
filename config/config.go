package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	OTP       OTPConfig       `envPrefix:"OTP_"`
	JWT       JWTConfig       `envPrefix:"JWT_"`
	RateLimit RateLimitConfig `envPrefix:"RATELIMIT_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"otpkit Application"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
}

type ServerConfig struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	Host           string   `env:"HOST" envDefault:"localhost"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"app.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type MailConfig struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"587"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
	Encryption   string `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress  string `env:"FROM_ADDRESS"`
	FromName     string `env:"FROM_NAME"`
	TemplatesDir string `env:"TEMPLATES_DIR"`
}

type OTPConfig struct {
	CodeLength       int           `env:"CODE_LENGTH" envDefault:"6"`
	Expiry           time.Duration `env:"EXPIRY" envDefault:"10m"`
	MaxAttempts      int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	MaxPerHour       int           `env:"MAX_PER_HOUR" envDefault:"5"`
	ResendInterval   time.Duration `env:"RESEND_INTERVAL" envDefault:"2m"`
	CleanupRetention time.Duration `env:"CLEANUP_RETENTION" envDefault:"24h"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY"`
	Algorithm    string        `env:"ALGORITHM" envDefault:"HS256"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	Issuer       string        `env:"ISSUER" envDefault:"otpkit"`
}

type RateLimitConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"true"`
	Rate    int           `env:"RATE" envDefault:"10"`
	Period  time.Duration `env:"PERIOD" envDefault:"1m"`
}

func LoadConfig(cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	return Validate(cfg)
}

func Validate(cfg *Config) error {
	if err := validateOTPConfig(&cfg.OTP); err != nil {
		return err
	}
	return nil
}

func validateOTPConfig(cfg *OTPConfig) error {
	if cfg.CodeLength < 4 {
		return fmt.Errorf("OTP code length must be at least 4 digits")
	}
	if cfg.CodeLength > 10 {
		return fmt.Errorf("OTP code length cannot exceed 10 digits")
	}
	if cfg.Expiry <= 0 {
		return fmt.Errorf("OTP expiry must be positive")
	}
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("OTP max attempts must be at least 1")
	}
	if cfg.MaxPerHour < 1 {
		return fmt.Errorf("OTP hourly cap must be at least 1")
	}
	if cfg.ResendInterval < 0 {
		return fmt.Errorf("OTP resend interval cannot be negative")
	}
	if cfg.ResendInterval >= cfg.Expiry {
		return fmt.Errorf("OTP resend interval must be shorter than the expiry")
	}
	return nil
}
