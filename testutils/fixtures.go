package testutils

import (
	"time"

	"github.com/tech-arch1tect/otpkit/config"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Test App",
			URL:  "http://localhost:8080",
		},
		OTP: config.OTPConfig{
			CodeLength:       6,
			Expiry:           10 * time.Minute,
			MaxAttempts:      3,
			MaxPerHour:       5,
			ResendInterval:   2 * time.Minute,
			CleanupRetention: 24 * time.Hour,
			CleanupInterval:  0,
		},
		JWT: config.JWTConfig{
			SecretKey:    "test-secret-key-32-chars-long!!",
			Algorithm:    "HS256",
			AccessExpiry: 15 * time.Minute,
			Issuer:       "test-issuer",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
		RateLimit: config.RateLimitConfig{
			Enabled: true,
			Rate:    10,
			Period:  time.Minute,
		},
	}
}

var TestEmails = struct {
	Valid    string
	Upper    string
	Invalid  string
	Unknown  string
	Inactive string
}{
	Valid:    "user@example.com",
	Upper:    "  User@Example.COM  ",
	Invalid:  "not-an-email",
	Unknown:  "ghost@example.com",
	Inactive: "dormant@example.com",
}
