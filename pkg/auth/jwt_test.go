package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		UserID: "user-1",
		Email:  "user@example.com",
		Roles:  []string{"editor"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "forge-backend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestJWTValidator_ValidToken(t *testing.T) {
	v, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "forge-backend"})
	require.NoError(t, err)

	claims, err := v.ValidateToken(signToken(t, validClaims(), testSecret))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, []string{"editor"}, claims.Roles)
}

func TestJWTValidator_BearerPrefixStripped(t *testing.T) {
	v, err := NewJWTValidator(JWTConfig{SecretKey: testSecret})
	require.NoError(t, err)

	claims, err := v.ValidateToken("Bearer " + signToken(t, validClaims(), testSecret))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestJWTValidator_Rejections(t *testing.T) {
	v, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "forge-backend"})
	require.NoError(t, err)

	_, err = v.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = v.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.ValidateToken(signToken(t, validClaims(), "wrong-secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err = v.ValidateToken(signToken(t, expired, testSecret))
	assert.ErrorIs(t, err, ErrExpiredToken)

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"
	_, err = v.ValidateToken(signToken(t, wrongIssuer, testSecret))
	assert.ErrorIs(t, err, ErrInvalidClaims)

	noSubject := validClaims()
	noSubject.UserID = ""
	_, err = v.ValidateToken(signToken(t, noSubject, testSecret))
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestJWTValidator_AudienceCheck(t *testing.T) {
	v, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Audience: []string{"forge-ui"}})
	require.NoError(t, err)

	matching := validClaims()
	matching.Audience = jwt.ClaimStrings{"forge-ui"}
	_, err = v.ValidateToken(signToken(t, matching, testSecret))
	assert.NoError(t, err)

	_, err = v.ValidateToken(signToken(t, validClaims(), testSecret))
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestNewJWTValidator_RequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	claims := &Claims{UserID: "user-1"}
	ctx := WithUser(context.Background(), claims)

	got, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	_, err = GetUserFromContext(context.Background())
	assert.ErrorIs(t, err, ErrMissingToken)
}
