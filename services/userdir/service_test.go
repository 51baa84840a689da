package userdir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/otpkit/services/otp"
	"github.com/tech-arch1tect/otpkit/testutils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestDirectory(t *testing.T) (*Directory, *otp.Service, *gorm.DB) {
	db := testutils.SetupTestDB(t, &User{}, &otp.OTP{})
	cfg := testutils.GetTestConfig()
	store := otp.NewStore(db, cfg, nil)
	limiter := otp.NewLimiter(store, cfg, nil)
	otpSvc := otp.NewService(cfg, store, limiter, nil)
	directory := NewDirectory(cfg, db, otpSvc, nil)
	otpSvc.SetUserDirectory(directory)
	return directory, otpSvc, db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, active bool) *User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("original-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &User{
		Username: email,
		Email:    email,
		Password: string(hashed),
		Active:   active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestDirectory_IsActiveEmail(t *testing.T) {
	directory, _, db := newTestDirectory(t)
	createTestUser(t, db, "active@example.com", true)
	createTestUser(t, db, "inactive@example.com", false)

	t.Run("active account", func(t *testing.T) {
		active, err := directory.IsActiveEmail("active@example.com")
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("inactive account", func(t *testing.T) {
		active, err := directory.IsActiveEmail("inactive@example.com")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("unknown email", func(t *testing.T) {
		active, err := directory.IsActiveEmail("ghost@example.com")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("lookup is case insensitive", func(t *testing.T) {
		active, err := directory.IsActiveEmail("Active@Example.COM")
		require.NoError(t, err)
		assert.True(t, active)
	})
}

func TestDirectory_CompleteOTPLogin(t *testing.T) {
	t.Run("stamps last login on success", func(t *testing.T) {
		directory, otpSvc, db := newTestDirectory(t)
		createTestUser(t, db, "user@example.com", true)

		record, err := otpSvc.IssueLogin("user@example.com")
		require.NoError(t, err)

		user, err := directory.CompleteOTPLogin("user@example.com", record.Code)

		require.NoError(t, err)
		require.NotNil(t, user.LastLoginAt)
		assert.WithinDuration(t, time.Now(), *user.LastLoginAt, time.Second)
	})

	t.Run("wrong code fails without touching the account", func(t *testing.T) {
		directory, otpSvc, db := newTestDirectory(t)
		createTestUser(t, db, "user@example.com", true)

		_, err := otpSvc.IssueLogin("user@example.com")
		require.NoError(t, err)

		_, err = directory.CompleteOTPLogin("user@example.com", "000000")
		assert.ErrorIs(t, err, otp.ErrVerifyFailed)

		stored, err := directory.FindByEmail("user@example.com")
		require.NoError(t, err)
		assert.Nil(t, stored.LastLoginAt)
	})

	t.Run("issuance refused for unknown account", func(t *testing.T) {
		_, otpSvc, _ := newTestDirectory(t)

		_, err := otpSvc.IssueLogin("ghost@example.com")
		assert.ErrorIs(t, err, otp.ErrIssueDenied)
	})

	t.Run("issuance refused for inactive account", func(t *testing.T) {
		_, otpSvc, db := newTestDirectory(t)
		createTestUser(t, db, "inactive@example.com", false)

		_, err := otpSvc.IssueLogin("inactive@example.com")
		assert.ErrorIs(t, err, otp.ErrIssueDenied)
	})
}

func TestDirectory_InitiatePasswordReset(t *testing.T) {
	t.Run("issues a code for an active account", func(t *testing.T) {
		directory, otpSvc, db := newTestDirectory(t)
		createTestUser(t, db, "user@example.com", true)

		err := directory.InitiatePasswordReset("user@example.com", otp.RequestContext{})

		require.NoError(t, err)
		record, err := otpSvc.Latest("user@example.com", otp.PurposePasswordReset)
		require.NoError(t, err)
		assert.False(t, record.Used)
	})

	t.Run("unknown email reports success and issues nothing", func(t *testing.T) {
		directory, otpSvc, _ := newTestDirectory(t)

		err := directory.InitiatePasswordReset("ghost@example.com", otp.RequestContext{})

		require.NoError(t, err)
		_, err = otpSvc.Latest("ghost@example.com", otp.PurposePasswordReset)
		assert.ErrorIs(t, err, otp.ErrRecordNotFound)
	})

	t.Run("inactive account is refused", func(t *testing.T) {
		directory, otpSvc, db := newTestDirectory(t)
		createTestUser(t, db, "inactive@example.com", false)

		err := directory.InitiatePasswordReset("inactive@example.com", otp.RequestContext{})

		assert.ErrorIs(t, err, ErrAccountInactive)
		_, err = otpSvc.Latest("inactive@example.com", otp.PurposePasswordReset)
		assert.ErrorIs(t, err, otp.ErrRecordNotFound)
	})
}

func TestDirectory_CompletePasswordReset(t *testing.T) {
	t.Run("replaces the password on a valid code", func(t *testing.T) {
		directory, _, db := newTestDirectory(t)
		user := createTestUser(t, db, "user@example.com", true)

		require.NoError(t, directory.InitiatePasswordReset(user.Email, otp.RequestContext{}))
		record := latestResetCode(t, db, user.Email)

		err := directory.CompletePasswordReset(user.Email, record.Code, "new-password")
		require.NoError(t, err)

		updated, err := directory.FindByEmail(user.Email)
		require.NoError(t, err)
		assert.True(t, directory.CheckPassword(updated, "new-password"))
		assert.False(t, directory.CheckPassword(updated, "original-pass"))
	})

	t.Run("the code is consumed even if reuse is attempted", func(t *testing.T) {
		directory, _, db := newTestDirectory(t)
		user := createTestUser(t, db, "user@example.com", true)

		require.NoError(t, directory.InitiatePasswordReset(user.Email, otp.RequestContext{}))
		record := latestResetCode(t, db, user.Email)

		require.NoError(t, directory.CompletePasswordReset(user.Email, record.Code, "new-password"))

		err := directory.CompletePasswordReset(user.Email, record.Code, "another-pass")
		assert.ErrorIs(t, err, otp.ErrVerifyFailed)
	})

	t.Run("short passwords are rejected before the code is spent", func(t *testing.T) {
		directory, _, db := newTestDirectory(t)
		user := createTestUser(t, db, "user@example.com", true)

		require.NoError(t, directory.InitiatePasswordReset(user.Email, otp.RequestContext{}))
		record := latestResetCode(t, db, user.Email)

		err := directory.CompletePasswordReset(user.Email, record.Code, "short")
		assert.ErrorIs(t, err, ErrPasswordTooShort)

		assert.NoError(t, directory.CompletePasswordReset(user.Email, record.Code, "new-password"))
	})

	t.Run("wrong code leaves the password unchanged", func(t *testing.T) {
		directory, _, db := newTestDirectory(t)
		user := createTestUser(t, db, "user@example.com", true)

		require.NoError(t, directory.InitiatePasswordReset(user.Email, otp.RequestContext{}))

		err := directory.CompletePasswordReset(user.Email, "000000", "new-password")
		assert.ErrorIs(t, err, otp.ErrVerifyFailed)

		updated, err := directory.FindByEmail(user.Email)
		require.NoError(t, err)
		assert.True(t, directory.CheckPassword(updated, "original-pass"))
	})
}

func latestResetCode(t *testing.T, db *gorm.DB, email string) *otp.OTP {
	t.Helper()

	var record otp.OTP
	require.NoError(t, db.
		Where("email = ? AND purpose = ?", email, otp.PurposePasswordReset).
		Order("created_at DESC").
		First(&record).Error)
	return &record
}
