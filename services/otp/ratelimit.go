package otp

import (
	"errors"
	"time"

	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"go.uber.org/zap"
)

// Limiter decides whether issuance is currently allowed for an
// (email, purpose) pair. The shared store is the sole source of truth, so
// the check-then-insert sequence is racy under concurrent issuance for the
// same pair; the hourly cap can be exceeded by a small margin.
type Limiter struct {
	store  *Store
	config *config.Config
	logger *logging.Service
}

func NewLimiter(store *Store, cfg *config.Config, logger *logging.Service) *Limiter {
	return &Limiter{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Allow applies the hourly cap and minimum resend interval. Any store error
// fails closed: denying issuance is safer than leaking unlimited codes.
func (l *Limiter) Allow(email string, purpose Purpose) bool {
	count, err := l.store.CountSince(email, purpose, time.Now().Add(-time.Hour))
	if err != nil {
		if l.logger != nil {
			l.logger.Error("rate limit check failed, denying issuance",
				zap.Error(err),
				zap.String("email", email))
		}
		return false
	}

	if count >= int64(l.config.OTP.MaxPerHour) {
		if l.logger != nil {
			l.logger.Warn("hourly otp cap reached",
				zap.String("email", email),
				zap.String("purpose", purpose.String()),
				zap.Int64("count", count))
		}
		return false
	}

	latest, err := l.store.FindLatest(email, purpose)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return true
		}
		if l.logger != nil {
			l.logger.Error("resend interval check failed, denying issuance",
				zap.Error(err),
				zap.String("email", email))
		}
		return false
	}

	nextAllowed := latest.CreatedAt.Add(l.config.OTP.ResendInterval)
	if time.Now().Before(nextAllowed) {
		if l.logger != nil {
			l.logger.Warn("minimum resend interval not met",
				zap.String("email", email),
				zap.String("purpose", purpose.String()),
				zap.Time("next_allowed", nextAllowed))
		}
		return false
	}

	return true
}

// CooldownMinutes returns the whole minutes until issuance is next allowed,
// rounded up; zero means "can issue now".
func (l *Limiter) CooldownMinutes(email string, purpose Purpose) int {
	latest, err := l.store.FindLatest(email, purpose)
	if err != nil {
		return 0
	}

	nextAllowed := latest.CreatedAt.Add(l.config.OTP.ResendInterval)
	remaining := time.Until(nextAllowed)
	if remaining <= 0 {
		return 0
	}

	return int(remaining/time.Minute) + 1
}
