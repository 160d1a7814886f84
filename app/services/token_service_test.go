package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService("", "", "")
	assert.Error(t, err)

	svc, err := NewTokenService(testSecret, "issuer", "authenticated")
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestValidateToken(t *testing.T) {
	svc, err := NewTokenService(testSecret, "test-issuer", "authenticated")
	require.NoError(t, err)

	userID := uuid.New()
	valid := jwt.MapClaims{
		"sub":   userID.String(),
		"email": "marketer@example.com",
		"role":  "authenticated",
		"iss":   "test-issuer",
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}

	t.Run("valid token", func(t *testing.T) {
		claims, err := svc.ValidateToken(signToken(t, testSecret, valid))
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "marketer@example.com", claims.Email)
		assert.Equal(t, "authenticated", claims.Role)
	})

	tests := []struct {
		name    string
		mutate  func(jwt.MapClaims)
		secret  string
		wantErr error
	}{
		{
			name:    "expired",
			mutate:  func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() },
			wantErr: ErrTokenExpired,
		},
		{
			name:    "missing expiry",
			mutate:  func(c jwt.MapClaims) { delete(c, "exp") },
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "wrong issuer",
			mutate:  func(c jwt.MapClaims) { c["iss"] = "someone-else" },
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "wrong audience",
			mutate:  func(c jwt.MapClaims) { c["aud"] = "anon" },
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "subject is not a uuid",
			mutate:  func(c jwt.MapClaims) { c["sub"] = "42" },
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "wrong secret",
			mutate:  func(jwt.MapClaims) {},
			secret:  "another-secret-key-for-jwt-signing-32",
			wantErr: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := jwt.MapClaims{}
			for k, v := range valid {
				claims[k] = v
			}
			tt.mutate(claims)
			secret := tt.secret
			if secret == "" {
				secret = testSecret
			}

			_, err := svc.ValidateToken(signToken(t, secret, claims))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
