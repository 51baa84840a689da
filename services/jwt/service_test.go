package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/otpkit/testutils"
)

func TestNewService(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)

	assert.NotNil(t, service)
	assert.Equal(t, cfg, service.config)
	assert.Nil(t, service.logger)
}

func TestService_GetAccessExpirySeconds(t *testing.T) {
	cfg := testutils.GetTestConfig()
	cfg.JWT.AccessExpiry = 15 * time.Minute
	service := NewService(cfg, nil)

	assert.Equal(t, 900, service.GetAccessExpirySeconds())
}

func TestService_GenerateToken(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)

	tokenString, err := service.GenerateToken(123, "user@example.com")

	require.NoError(t, err)
	assert.NotEmpty(t, tokenString)

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(cfg.JWT.SecretKey), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(*Claims)
	require.True(t, ok)
	assert.Equal(t, uint(123), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.NotEmpty(t, claims.JTI)
	assert.Equal(t, cfg.JWT.Issuer, claims.Issuer)
	assert.NotNil(t, claims.ExpiresAt)
	assert.NotNil(t, claims.IssuedAt)
}

func TestService_ValidateToken(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)

	t.Run("valid token", func(t *testing.T) {
		tokenString, err := service.GenerateToken(42, "user@example.com")
		require.NoError(t, err)

		claims, err := service.ValidateToken(tokenString)

		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, "user@example.com", claims.Email)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := service.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expiredCfg := testutils.GetTestConfig()
		expiredCfg.JWT.AccessExpiry = -time.Minute
		expiredSvc := NewService(expiredCfg, nil)

		tokenString, err := expiredSvc.GenerateToken(42, "")
		require.NoError(t, err)

		_, err = service.ValidateToken(tokenString)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		otherCfg := testutils.GetTestConfig()
		otherCfg.JWT.SecretKey = "a-completely-different-secret"
		otherSvc := NewService(otherCfg, nil)

		tokenString, err := otherSvc.GenerateToken(42, "")
		require.NoError(t, err)

		_, err = service.ValidateToken(tokenString)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42})
		tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.ValidateToken(tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
