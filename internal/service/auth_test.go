package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ependal/vidgate/internal/domain"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	svc := NewAuthService("jwt-secret")

	token, err := svc.MintToken("user-42", time.Hour)
	require.NoError(t, err)

	subject, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", subject)
}

func TestAuthServiceExpiredToken(t *testing.T) {
	svc := NewAuthService("jwt-secret")

	token, err := svc.MintToken("user-42", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestAuthServiceMalformedToken(t *testing.T) {
	svc := NewAuthService("jwt-secret")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.ValidateToken(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken, "token %q", token)
	}
}

func TestAuthServiceWrongSecret(t *testing.T) {
	minter := NewAuthService("secret-a")
	validator := NewAuthService("secret-b")

	token, err := minter.MintToken("user-42", time.Hour)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
