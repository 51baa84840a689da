package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"go.uber.org/zap"
)

type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger *logging.Service
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	configureTrustedProxies(e, cfg.Server.TrustedProxies, logger)

	if logger != nil {
		e.Use(logging.RequestLogger(logger))
	}

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger,
	}
}

// configureTrustedProxies decides how the client IP is derived. With no
// valid trusted proxies the socket address is authoritative; otherwise the
// X-Forwarded-For chain is walked, trusting only the configured ranges.
func configureTrustedProxies(e *echo.Echo, trustedProxies []string, logger *logging.Service) {
	var trustOptions []echo.TrustOption

	for _, proxy := range trustedProxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}

		if !strings.Contains(proxy, "/") {
			if ip := net.ParseIP(proxy); ip != nil {
				if ip.To4() != nil {
					proxy += "/32"
				} else {
					proxy += "/128"
				}
			}
		}

		_, ipNet, err := net.ParseCIDR(proxy)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring invalid trusted proxy entry",
					zap.String("proxy", proxy),
					zap.Error(err))
			}
			continue
		}
		trustOptions = append(trustOptions, echo.TrustIPRange(ipNet))
	}

	if len(trustOptions) == 0 {
		e.IPExtractor = echo.ExtractIPDirect()
		return
	}

	e.IPExtractor = echo.ExtractIPFromXFFHeader(trustOptions...)
}

func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)

	if s.logger != nil {
		s.logger.Info("starting http server", zap.String("addr", addr))
	}

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		if s.logger != nil {
			s.logger.Fatal("failed to start http server", zap.Error(err))
		}
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) Use(middleware ...echo.MiddlewareFunc) {
	s.echo.Use(middleware...)
}

func (s *Server) Get(path string, handler echo.HandlerFunc) {
	s.echo.GET(path, handler)
}

func (s *Server) Post(path string, handler echo.HandlerFunc) {
	s.echo.POST(path, handler)
}

func (s *Server) Put(path string, handler echo.HandlerFunc) {
	s.echo.PUT(path, handler)
}

func (s *Server) Delete(path string, handler echo.HandlerFunc) {
	s.echo.DELETE(path, handler)
}

func (s *Server) Group(prefix string) *echo.Group {
	return s.echo.Group(prefix)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
