package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessToken(t *testing.T) {
	t.Parallel()

	tok, err := NewAccessToken("s3cret", 42, "MANAGER", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (any, error) { return []byte("s3cret"), nil },
		jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "MANAGER", claims["role"])
}

func TestNewAccessTokenRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewAccessToken("", 1, "STAFF", 15)
	assert.Error(t, err)
	_, err = NewAccessToken("k", 1, "STAFF", 0)
	assert.Error(t, err)
}
