package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/server"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "test-app",
			URL:  "http://localhost:8080",
		},
		Server: config.ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "console",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		OTP: config.OTPConfig{
			CodeLength:       6,
			Expiry:           10 * time.Minute,
			MaxAttempts:      3,
			MaxPerHour:       5,
			ResendInterval:   2 * time.Minute,
			CleanupRetention: 24 * time.Hour,
		},
		JWT: config.JWTConfig{
			SecretKey:    "test-secret-key-32-chars-long!!",
			Algorithm:    "HS256",
			AccessExpiry: 15 * time.Minute,
			Issuer:       "test-issuer",
		},
	}
}

func createTestApp() *App {
	cfg := createTestConfig()
	logger, _ := logging.NewService(logging.Config{
		Level:      logging.Debug,
		Format:     "console",
		OutputPath: "stdout",
	})

	db, _ := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	srv := server.New(cfg, nil)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		server: srv,
	}
}

func TestApp_Server(t *testing.T) {
	t.Run("with server", func(t *testing.T) {
		app := createTestApp()

		assert.NotNil(t, app.Server())
	})

	t.Run("without server", func(t *testing.T) {
		app := createTestApp()
		app.server = nil

		assert.Nil(t, app.Server())
	})
}

func TestApp_Accessors(t *testing.T) {
	app := createTestApp()

	assert.Equal(t, app.db, app.DB())
	assert.Equal(t, app.logger, app.Logger())
	assert.Equal(t, app.config, app.Config())
	assert.Nil(t, app.OTPService())
	assert.Nil(t, app.UserDirectory())
}

func TestApp_RegisterRoutes(t *testing.T) {
	app := createTestApp()

	called := false
	app.RegisterRoutes(func(e *echo.Echo) {
		called = true
		assert.Equal(t, app.Server(), e)
	})

	assert.True(t, called)
}

func TestApp_HTTPMethods(t *testing.T) {
	app := createTestApp()

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	app.Get("/get", handler)
	app.Post("/post", handler)
	app.Put("/put", handler)
	app.Delete("/delete", handler)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/get"},
		{http.MethodPost, "/post"},
		{http.MethodPut, "/put"},
		{http.MethodDelete, "/delete"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		app.Server().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestApp_HTTPMethodsWithNilServer(t *testing.T) {
	app := createTestApp()
	app.server = nil

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	app.Get("/get", handler)
	app.Post("/post", handler)
	app.Put("/put", handler)
	app.Delete("/delete", handler)

	app.RegisterRoutes(func(e *echo.Echo) {
		t.Error("expected register callback to be skipped")
	})
}
