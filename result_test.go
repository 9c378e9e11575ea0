package authclient_test

import (
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		res := authclient.Ok(42, "done")
		assert.True(t, res.OK())
		assert.Equal(t, authclient.KindNone, res.Kind)
		assert.Equal(t, "done", res.Message)

		value, err := res.Unwrap()
		require.NoError(t, err)
		assert.Equal(t, 42, value)
	})

	t.Run("fail derives kind and message", func(t *testing.T) {
		res := authclient.Fail[string](authclient.ErrNetwork.Clone(), "")
		assert.False(t, res.OK())
		assert.Equal(t, authclient.KindNetwork, res.Kind)
		assert.NotEmpty(t, res.Message)
		assert.Empty(t, res.Value)

		_, err := res.Unwrap()
		assert.Error(t, err)
	})

	t.Run("fail keeps explicit message", func(t *testing.T) {
		res := authclient.Fail[int](authclient.ErrNoSession, "sign in first")
		assert.Equal(t, authclient.KindNoSession, res.Kind)
		assert.Equal(t, "sign in first", res.Message)
	})

	t.Run("fail without error is internal", func(t *testing.T) {
		res := authclient.Fail[bool](nil, "unexpected")
		assert.False(t, res.OK())
		assert.Equal(t, authclient.KindInternal, res.Kind)
	})
}
