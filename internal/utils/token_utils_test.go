package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorJWT_RoundTrip(t *testing.T) {
	token, err := GenerateOperatorJWT("front-desk", "secret", time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := ParseOperatorJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "front-desk", claims.Subject)
	assert.Equal(t, OperatorTokenIssuer, claims.Issuer)
}

func TestOperatorJWT_Expired(t *testing.T) {
	token, err := GenerateOperatorJWT("front-desk", "secret", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ParseOperatorJWT(token, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestOperatorJWT_WrongSecret(t *testing.T) {
	token, err := GenerateOperatorJWT("front-desk", "secret", time.Hour, time.Now())
	require.NoError(t, err)

	_, err = ParseOperatorJWT(token, "other")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestGenerateOperatorJWT_RejectsBadInput(t *testing.T) {
	_, err := GenerateOperatorJWT("", "secret", time.Hour, time.Now())
	assert.Error(t, err)

	_, err = GenerateOperatorJWT("front-desk", "secret", 0, time.Now())
	assert.Error(t, err)
}
