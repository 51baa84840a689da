package otp

import (
	"time"
)

// Purpose partitions codes by the flow they were issued for. Lookups and
// rate-limit windows never cross purposes.
type Purpose string

const (
	PurposeLogin             Purpose = "LOGIN"
	PurposePasswordReset     Purpose = "PASSWORD_RESET"
	PurposeEmailVerification Purpose = "EMAIL_VERIFICATION"
)

func (p Purpose) String() string {
	return string(p)
}

func (p Purpose) Valid() bool {
	switch p {
	case PurposeLogin, PurposePasswordReset, PurposeEmailVerification:
		return true
	}
	return false
}

type OTP struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"size:100;not null;index:idx_otps_email_purpose,priority:1"`
	Code      string    `json:"-" gorm:"size:10;not null"`
	Purpose   Purpose   `json:"purpose" gorm:"size:50;not null;index:idx_otps_email_purpose,priority:2"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	Used      bool      `json:"used" gorm:"not null;default:false"`
	Attempts  int       `json:"attempts" gorm:"not null;default:0"`
	UserAgent string    `json:"user_agent,omitempty" gorm:"size:500"`
	IPAddress string    `json:"ip_address,omitempty" gorm:"size:50"`
}

func (OTP) TableName() string {
	return "otps"
}

func (o *OTP) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}

// IsLive reports whether the record can still be consumed. Expiry and
// attempt exhaustion are derived here, never stored as a status column.
func (o *OTP) IsLive(maxAttempts int) bool {
	return !o.Used && !o.IsExpired() && o.Attempts < maxAttempts
}

// Remaining returns the time until expiry, floored at zero.
func (o *OTP) Remaining() time.Duration {
	remaining := time.Until(o.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RequestContext carries write-once provenance recorded at issuance.
// Verification never consults it.
type RequestContext struct {
	UserAgent string
	IPAddress string
}
