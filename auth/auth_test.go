package auth

import (
	"chatlink/errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return signed
}

func TestExpired(t *testing.T) {
	req := require.New(t)
	now := time.Now()

	t.Run("past exp claim is expired", func(t *testing.T) {
		expired := token(t, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		})
		req.True(Expired(expired, now))
	})

	t.Run("future exp claim is not expired", func(t *testing.T) {
		valid := token(t, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})
		req.False(Expired(valid, now))
	})

	t.Run("missing exp claim defers to the backend", func(t *testing.T) {
		open := token(t, jwt.RegisteredClaims{Subject: "u1"})
		req.False(Expired(open, now))
	})

	t.Run("opaque token defers to the backend", func(t *testing.T) {
		req.False(Expired("not-a-jwt", now))
	})
}

func TestValidateLogin(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateLogin(LoginRequest{Username: "alice", Password: "secret"}))

	err := ValidateLogin(LoginRequest{Username: "", Password: "secret"})
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestValidateRegister(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateRegister(RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "longenough",
	}))

	req.ErrorIs(ValidateRegister(RegisterRequest{
		Username: "alice", Email: "nope", Password: "longenough",
	}), errors.ErrInvalidRegistration)

	req.ErrorIs(ValidateRegister(RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "short",
	}), errors.ErrInvalidRegistration)

	req.ErrorIs(ValidateRegister(RegisterRequest{
		Username: "al", Email: "alice@example.com", Password: "longenough",
	}), errors.ErrInvalidRegistration)
}
