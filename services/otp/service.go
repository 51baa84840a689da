package otp

import (
	"errors"
	"time"

	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"go.uber.org/zap"
)

var (
	// ErrIssueDenied covers every non-fault reason issuance did not happen:
	// malformed email, unknown or inactive account, rate limiting. Callers
	// get one signal for all of them so the reason cannot be probed.
	ErrIssueDenied = errors.New("otp issuance denied")

	// ErrVerifyFailed covers every non-fault reason verification did not
	// succeed: malformed, wrong, expired, consumed or exhausted codes.
	ErrVerifyFailed = errors.New("otp verification failed")

	ErrCodeGenerationFailed = errors.New("failed to generate otp code")
)

// Mailer is the notification channel. Delivery failure never rolls back an
// already-persisted code.
type Mailer interface {
	SendOTPEmail(to, code string, expiryMinutes int) error
}

// UserDirectory answers whether an email belongs to an active account. Only
// LOGIN issuance consults it.
type UserDirectory interface {
	IsActiveEmail(email string) (bool, error)
}

type Service struct {
	config    *config.Config
	store     *Store
	limiter   *Limiter
	mailer    Mailer
	directory UserDirectory
	logger    *logging.Service
}

func NewService(cfg *config.Config, store *Store, limiter *Limiter, logger *logging.Service) *Service {
	if logger != nil {
		logger.Info("initializing otp service",
			zap.Int("code_length", cfg.OTP.CodeLength),
			zap.Duration("expiry", cfg.OTP.Expiry),
			zap.Int("max_attempts", cfg.OTP.MaxAttempts),
			zap.Int("max_per_hour", cfg.OTP.MaxPerHour))
	}

	return &Service{
		config:  cfg,
		store:   store,
		limiter: limiter,
		logger:  logger,
	}
}

func (s *Service) SetMailer(mailer Mailer) {
	s.mailer = mailer
}

func (s *Service) SetUserDirectory(directory UserDirectory) {
	s.directory = directory
}

// Issue generates, persists and delivers a fresh code. Exactly one record
// exists per successful call; a delivery failure leaves it valid.
func (s *Service) Issue(email string, purpose Purpose, reqCtx RequestContext) (*OTP, error) {
	email = NormalizeEmail(email)

	if !ValidEmail(email) {
		if s.logger != nil {
			s.logger.Warn("otp issuance rejected: invalid email format")
		}
		return nil, ErrIssueDenied
	}

	if purpose == "" {
		purpose = PurposeLogin
	}
	if !purpose.Valid() {
		if s.logger != nil {
			s.logger.Warn("otp issuance rejected: unknown purpose",
				zap.String("purpose", purpose.String()))
		}
		return nil, ErrIssueDenied
	}

	if !s.limiter.Allow(email, purpose) {
		if s.logger != nil {
			s.logger.Warn("otp issuance rejected: rate limited",
				zap.String("email", email),
				zap.String("purpose", purpose.String()))
		}
		return nil, ErrIssueDenied
	}

	if purpose == PurposeLogin && s.directory != nil {
		active, err := s.directory.IsActiveEmail(email)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("user directory lookup failed",
					zap.Error(err),
					zap.String("email", email))
			}
			return nil, ErrIssueDenied
		}
		if !active {
			if s.logger != nil {
				s.logger.Warn("otp issuance rejected: no active account",
					zap.String("email", email))
			}
			return nil, ErrIssueDenied
		}
	}

	code, err := GenerateCode(s.config.OTP.CodeLength)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("otp code generation failed", zap.Error(err))
		}
		return nil, ErrCodeGenerationFailed
	}

	now := time.Now()
	record := &OTP{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.OTP.Expiry),
		Used:      false,
		Attempts:  0,
		UserAgent: reqCtx.UserAgent,
		IPAddress: reqCtx.IPAddress,
	}

	if err := s.store.Create(record); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		expiryMinutes := int(s.config.OTP.Expiry.Minutes())
		if err := s.mailer.SendOTPEmail(email, code, expiryMinutes); err != nil {
			// The record stays valid: the user may still receive the code
			// through a retried channel, or an operator can intervene.
			if s.logger != nil {
				s.logger.Error("otp delivery failed, record kept",
					zap.Error(err),
					zap.Uint("otp_id", record.ID),
					zap.String("email", email))
			}
		}
	}

	if s.logger != nil {
		s.logger.Info("otp issued",
			zap.Uint("otp_id", record.ID),
			zap.String("email", email),
			zap.String("purpose", purpose.String()),
			zap.String("code", MaskCode(code)))
	}

	return record, nil
}

// IssueLogin issues a LOGIN code with no provenance metadata.
func (s *Service) IssueLogin(email string) (*OTP, error) {
	return s.Issue(email, PurposeLogin, RequestContext{})
}

// Verify validates a submitted code. A live match is consumed atomically;
// a miss penalizes the latest pending record for the pair.
func (s *Service) Verify(email, code string, purpose Purpose) (*OTP, error) {
	email = NormalizeEmail(email)
	code = NormalizeCode(code)

	if email == "" || code == "" {
		return nil, ErrVerifyFailed
	}

	if !ValidCodeFormat(code, s.config.OTP.CodeLength) {
		if s.logger != nil {
			s.logger.Warn("otp verification rejected: malformed code",
				zap.String("email", email))
		}
		return nil, ErrVerifyFailed
	}

	if purpose == "" {
		purpose = PurposeLogin
	}

	record, err := s.store.FindLive(email, code, purpose)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			s.penalizeLatest(email, purpose)
			if s.logger != nil {
				s.logger.Warn("otp verification failed: no live match",
					zap.String("email", email),
					zap.String("purpose", purpose.String()),
					zap.String("code", MaskCode(code)))
			}
			return nil, ErrVerifyFailed
		}
		return nil, err
	}

	affected, err := s.store.MarkUsed(record.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// A concurrent submission won the conditional update.
		if s.logger != nil {
			s.logger.Warn("otp verification failed: already consumed",
				zap.Uint("otp_id", record.ID),
				zap.String("email", email))
		}
		return nil, ErrVerifyFailed
	}

	record.Used = true

	if s.logger != nil {
		s.logger.Info("otp verified",
			zap.Uint("otp_id", record.ID),
			zap.String("email", email),
			zap.String("purpose", purpose.String()),
			zap.String("code", MaskCode(code)))
	}

	return record, nil
}

// penalizeLatest charges a failed guess against the newest pending record
// for the pair, even when the guess matched nothing. Repeated wrong guesses
// therefore burn the real code's attempt budget.
func (s *Service) penalizeLatest(email string, purpose Purpose) {
	latest, err := s.store.FindLatest(email, purpose)
	if err != nil {
		return
	}
	if latest.Used || latest.IsExpired() {
		return
	}
	s.store.IncrementAttempts(latest.ID)
}

// Resend issues a replacement code, but only once the current one is close
// to expiring or gone, so a user never holds many simultaneously-valid codes.
func (s *Service) Resend(email string, purpose Purpose) (*OTP, error) {
	email = NormalizeEmail(email)

	if purpose == "" {
		purpose = PurposeLogin
	}

	if !s.limiter.Allow(email, purpose) {
		if s.logger != nil {
			s.logger.Warn("otp resend rejected: rate limited",
				zap.String("email", email),
				zap.String("purpose", purpose.String()))
		}
		return nil, ErrIssueDenied
	}

	latest, err := s.store.FindLatest(email, purpose)
	if err == nil && !latest.Used && !latest.IsExpired() {
		if latest.Remaining() > s.config.OTP.ResendInterval {
			if s.logger != nil {
				s.logger.Warn("otp resend rejected: current code still fresh",
					zap.String("email", email),
					zap.Duration("remaining", latest.Remaining()))
			}
			return nil, ErrIssueDenied
		}
	}

	return s.Issue(email, purpose, RequestContext{})
}

// Latest is a status probe; it never consumes attempts.
func (s *Service) Latest(email string, purpose Purpose) (*OTP, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrRecordNotFound
	}
	if purpose == "" {
		purpose = PurposeLogin
	}
	return s.store.FindLatest(email, purpose)
}

func (s *Service) RateLimited(email string, purpose Purpose) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return true
	}
	if purpose == "" {
		purpose = PurposeLogin
	}
	return !s.limiter.Allow(email, purpose)
}

func (s *Service) CooldownMinutes(email string, purpose Purpose) int {
	email = NormalizeEmail(email)
	if email == "" {
		return 0
	}
	if purpose == "" {
		purpose = PurposeLogin
	}
	return s.limiter.CooldownMinutes(email, purpose)
}

// CleanupExpired removes consumed records and records past the retention
// margin. Safe to run concurrently with issuance and verification.
func (s *Service) CleanupExpired() (int64, error) {
	deleted, err := s.store.DeleteStale(s.config.OTP.CleanupRetention)
	if err != nil {
		return 0, err
	}

	if s.logger != nil {
		if deleted > 0 {
			s.logger.Info("cleaned up stale otp records", zap.Int64("count", deleted))
		} else {
			s.logger.Debug("no stale otp records to clean up")
		}
	}
	return deleted, nil
}

func (s *Service) StartCleanupWorker() {
	go func() {
		ticker := time.NewTicker(s.config.OTP.CleanupInterval)
		defer ticker.Stop()

		for range ticker.C {
			if _, err := s.CleanupExpired(); err != nil && s.logger != nil {
				s.logger.Error("otp cleanup worker failed", zap.Error(err))
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("started otp cleanup worker",
			zap.Duration("interval", s.config.OTP.CleanupInterval))
	}
}
