package userdir

import (
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/otpkit/config"
	"github.com/tech-arch1tect/otpkit/services/logging"
	"github.com/tech-arch1tect/otpkit/services/otp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrAccountInactive       = errors.New("account is not active")
	ErrPasswordHashingFailed = errors.New("failed to hash password")
	ErrPasswordTooShort      = errors.New("password is too short")
)

const minPasswordLength = 6

// Directory backs account lookups for OTP flows. It satisfies
// otp.UserDirectory so LOGIN issuance can be gated on account state.
type Directory struct {
	config *config.Config
	db     *gorm.DB
	otpSvc *otp.Service
	logger *logging.Service
}

func NewDirectory(cfg *config.Config, db *gorm.DB, otpSvc *otp.Service, logger *logging.Service) *Directory {
	return &Directory{
		config: cfg,
		db:     db,
		otpSvc: otpSvc,
		logger: logger,
	}
}

func (d *Directory) FindByEmail(email string) (*User, error) {
	var user User
	err := d.db.Where("email = ?", otp.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

// IsActiveEmail implements otp.UserDirectory.
func (d *Directory) IsActiveEmail(email string) (bool, error) {
	user, err := d.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Active, nil
}

// CompleteOTPLogin verifies a LOGIN code and, on success, stamps the
// account's last login time and returns it.
func (d *Directory) CompleteOTPLogin(email, code string) (*User, error) {
	if _, err := d.otpSvc.Verify(email, code, otp.PurposeLogin); err != nil {
		return nil, err
	}

	user, err := d.FindByEmail(email)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := d.db.Model(user).Update("last_login_at", now).Error; err != nil {
		if d.logger != nil {
			d.logger.Error("failed to stamp last login",
				zap.Error(err),
				zap.Uint("user_id", user.ID))
		}
	} else {
		user.LastLoginAt = &now
	}

	if d.logger != nil {
		d.logger.Info("otp login completed",
			zap.Uint("user_id", user.ID),
			zap.String("email", user.Email))
	}
	return user, nil
}

// InitiatePasswordReset issues a PASSWORD_RESET code if the email belongs
// to an active account. Unknown emails report success without sending
// anything, so the endpoint cannot be used to enumerate accounts. Inactive
// accounts are refused outright.
func (d *Directory) InitiatePasswordReset(email string, reqCtx otp.RequestContext) error {
	user, err := d.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			if d.logger != nil {
				d.logger.Info("password reset requested for unknown email")
			}
			return nil
		}
		return err
	}

	if !user.Active {
		if d.logger != nil {
			d.logger.Warn("password reset refused: inactive account",
				zap.Uint("user_id", user.ID))
		}
		return ErrAccountInactive
	}

	_, err = d.otpSvc.Issue(user.Email, otp.PurposePasswordReset, reqCtx)
	return err
}

// VerifyPasswordResetOTP consumes a PASSWORD_RESET code without changing
// the password, for flows that verify the code on a separate screen.
func (d *Directory) VerifyPasswordResetOTP(email, code string) error {
	_, err := d.otpSvc.Verify(email, code, otp.PurposePasswordReset)
	return err
}

// CompletePasswordReset consumes a PASSWORD_RESET code and replaces the
// account's password in one call.
func (d *Directory) CompletePasswordReset(email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	if _, err := d.otpSvc.Verify(email, code, otp.PurposePasswordReset); err != nil {
		return err
	}

	user, err := d.FindByEmail(email)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		if d.logger != nil {
			d.logger.Error("failed to hash password", zap.Error(err))
		}
		return ErrPasswordHashingFailed
	}

	if err := d.db.Model(user).Update("password", string(hashed)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if d.logger != nil {
		d.logger.Info("password reset completed",
			zap.Uint("user_id", user.ID),
			zap.String("email", user.Email))
	}
	return nil
}

// CheckPassword compares a candidate password against the stored hash.
func (d *Directory) CheckPassword(user *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}
