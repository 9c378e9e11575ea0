package authclient_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("jwt with exp", func(t *testing.T) {
		got, ok := authclient.TokenExpiry(signedToken(t, exp))
		require.True(t, ok)
		assert.True(t, got.Equal(exp))
	})

	t.Run("jwt without exp", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7"}).
			SignedString([]byte("k"))
		require.NoError(t, err)
		_, ok := authclient.TokenExpiry(raw)
		assert.False(t, ok)
	})

	for _, raw := range []string{"", "opaque-token", "a.b.c", "one.two"} {
		t.Run("not a jwt "+raw, func(t *testing.T) {
			_, ok := authclient.TokenExpiry(raw)
			assert.False(t, ok)
		})
	}
}
