package otp

import (
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("otp record not found")

// Store is the persistence adapter for OTP records. Every write is a single
// atomic statement; reads return detached copies.
type Store struct {
	db     *gorm.DB
	config *config.Config
	logger *logging.Service
}

func NewStore(db *gorm.DB, cfg *config.Config, logger *logging.Service) *Store {
	return &Store{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

func (s *Store) Create(record *OTP) error {
	if err := s.db.Create(record).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to store otp record",
				zap.Error(err),
				zap.String("email", record.Email),
				zap.String("purpose", record.Purpose.String()))
		}
		return fmt.Errorf("failed to store otp record: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("otp record stored",
			zap.Uint("otp_id", record.ID),
			zap.String("email", record.Email),
			zap.String("purpose", record.Purpose.String()),
			zap.Time("expires_at", record.ExpiresAt))
	}
	return nil
}

// MarkUsed flips used to true for the record iff it has not been consumed
// yet. The conditional update makes double-spending a code impossible: of
// two concurrent submissions only one observes rows affected > 0.
func (s *Store) MarkUsed(id uint) (int64, error) {
	result := s.db.Model(&OTP{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)

	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to mark otp as used",
				zap.Error(result.Error),
				zap.Uint("otp_id", id))
		}
		return 0, fmt.Errorf("failed to mark otp as used: %w", result.Error)
	}

	if result.RowsAffected > 0 && s.logger != nil {
		s.logger.Info("otp marked as used", zap.Uint("otp_id", id))
	}
	return result.RowsAffected, nil
}

func (s *Store) IncrementAttempts(id uint) (int64, error) {
	result := s.db.Model(&OTP{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1"))

	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to increment otp attempts",
				zap.Error(result.Error),
				zap.Uint("otp_id", id))
		}
		return 0, fmt.Errorf("failed to increment otp attempts: %w", result.Error)
	}

	if result.RowsAffected > 0 && s.logger != nil {
		s.logger.Debug("otp attempts incremented", zap.Uint("otp_id", id))
	}
	return result.RowsAffected, nil
}

// FindLive returns the newest record matching email, code and purpose that
// is unused, unexpired and under the attempt limit as of now.
func (s *Store) FindLive(email, code string, purpose Purpose) (*OTP, error) {
	var record OTP
	err := s.db.
		Where("email = ? AND code = ? AND purpose = ?", email, code, purpose).
		Where("used = ? AND expires_at > ? AND attempts < ?", false, time.Now(), s.config.OTP.MaxAttempts).
		Order("created_at DESC").
		First(&record).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		if s.logger != nil {
			s.logger.Error("failed to query live otp",
				zap.Error(err),
				zap.String("email", email))
		}
		return nil, fmt.Errorf("failed to query live otp: %w", err)
	}

	return &record, nil
}

// FindLatest returns the most recent record for the pair regardless of
// liveness, for cooldown and status checks.
func (s *Store) FindLatest(email string, purpose Purpose) (*OTP, error) {
	var record OTP
	err := s.db.
		Where("email = ? AND purpose = ?", email, purpose).
		Order("created_at DESC").
		First(&record).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		if s.logger != nil {
			s.logger.Error("failed to query latest otp",
				zap.Error(err),
				zap.String("email", email))
		}
		return nil, fmt.Errorf("failed to query latest otp: %w", err)
	}

	return &record, nil
}

func (s *Store) CountSince(email string, purpose Purpose, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&OTP{}).
		Where("email = ? AND purpose = ? AND created_at >= ?", email, purpose, since).
		Count(&count).Error

	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to count otp records",
				zap.Error(err),
				zap.String("email", email))
		}
		return 0, fmt.Errorf("failed to count otp records: %w", err)
	}

	return count, nil
}

// DeleteStale removes consumed records and records expired more than the
// retention margin ago. Live records are never touched.
func (s *Store) DeleteStale(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := s.db.
		Where("used = ? OR expires_at < ?", true, cutoff).
		Delete(&OTP{})

	if result.Error != nil {
		if s.logger != nil {
			s.logger.Error("failed to delete stale otp records", zap.Error(result.Error))
		}
		return 0, fmt.Errorf("failed to delete stale otp records: %w", result.Error)
	}

	if result.RowsAffected > 0 && s.logger != nil {
		s.logger.Info("deleted stale otp records",
			zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
