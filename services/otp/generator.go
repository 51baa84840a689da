package otp

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const digitAlphabet = "0123456789"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// GenerateCode produces a numeric code of the given length drawn uniformly
// from the digit alphabet. A non-positive length is a programmer error.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		panic(fmt.Sprintf("otp: code length must be positive, got %d", length))
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var code strings.Builder
	code.Grow(length)
	for i := 0; i < length; i++ {
		// Rejection sampling keeps the digit distribution uniform.
		for buf[i] >= 250 {
			if _, err := rand.Read(buf[i : i+1]); err != nil {
				return "", fmt.Errorf("failed to read random bytes: %w", err)
			}
		}
		code.WriteByte(digitAlphabet[int(buf[i])%10])
	}

	return code.String(), nil
}

// MaskCode renders a code safe for logging: only the first and last
// characters survive.
func MaskCode(code string) string {
	if len(code) < 2 {
		return "***"
	}

	if len(code) <= 4 {
		return string(code[0]) + "**" + string(code[len(code)-1])
	}

	return string(code[0]) + strings.Repeat("*", len(code)-2) + string(code[len(code)-1])
}

// ValidCodeFormat checks length and charset without touching the store.
func ValidCodeFormat(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

func ValidEmail(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	return emailPattern.MatchString(email)
}
