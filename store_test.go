package authclient_test

import (
	"context"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := authclient.NewMemoryStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)

	require.NoError(t, store.Set("k", "v1"))
	require.NoError(t, store.Set("k", "v2"))
	value, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v2", value)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Remove("k"))
	require.NoError(t, store.Remove("k"))
	assert.Equal(t, 0, store.Len())

	var zero authclient.MemoryStore
	assert.NoError(t, zero.Set("k", "v"))
}

func TestNamespacedStoreKeys(t *testing.T) {
	tests := []struct {
		namespace string
		expected  authclient.StoreKeys
	}{
		{namespace: "", expected: authclient.DefaultStoreKeys()},
		{namespace: "  ", expected: authclient.DefaultStoreKeys()},
		{
			namespace: "work",
			expected:  authclient.StoreKeys{Access: "work.access_token", Refresh: "work.refresh_token"},
		},
		{
			namespace: " .staging. ",
			expected:  authclient.StoreKeys{Access: "staging.access_token", Refresh: "staging.refresh_token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			assert.Equal(t, tt.expected, authclient.NamespacedStoreKeys(tt.namespace))
		})
	}
}

func TestPurgeRemovesRefreshTokenWhenAccessRemovalFails(t *testing.T) {
	endpoint := &MockIdentityEndpoint{}
	store := newFlakyStore()
	c := loggedIn(t, endpoint, store)

	store.mu.Lock()
	store.failRm[authclient.AccessTokenKey] = true
	store.mu.Unlock()

	endpoint.On("Logout", mock.Anything, "RT1").Return(nil).Once()
	res := c.Logout(context.Background())

	assert.True(t, res.OK())
	assert.Equal(t, authclient.StateUnauthenticated, c.State())
	_, hasRefresh := store.Get(authclient.RefreshTokenKey)
	assert.False(t, hasRefresh)
}

func TestRestoreSurvivesControllerRecreation(t *testing.T) {
	store := authclient.NewMemoryStore()
	first := &MockIdentityEndpoint{}
	loggedIn(t, first, store)

	second := &MockIdentityEndpoint{}
	second.On("Me", mock.Anything, "AT1").Return(profile(), nil).Once()
	c := authclient.NewController(second, store)
	require.Equal(t, authclient.StateRestoring, c.State())

	res := c.RestoreSession(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, "RT1", c.Snapshot().RefreshToken)
}

func TestPairWriteRemovesAccessTokenFirst(t *testing.T) {
	endpoint := &MockIdentityEndpoint{}
	store := newFlakyStore()
	loggedIn(t, endpoint, store)

	assert.Equal(t, []string{
		"remove:" + authclient.AccessTokenKey,
		"set:" + authclient.RefreshTokenKey,
		"set:" + authclient.AccessTokenKey,
	}, store.operations())
}

func TestInterruptedLoginNeverMixesPairs(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	require.NoError(t, store.Set(authclient.AccessTokenKey, "AT1"))
	require.NoError(t, store.Set(authclient.RefreshTokenKey, "RT1"))

	endpoint := &MockIdentityEndpoint{}
	endpoint.On("Me", mock.Anything, "AT1").Return(profile(), nil).Once()
	c := authclient.NewController(endpoint, store)
	require.True(t, c.RestoreSession(ctx).OK())

	other := loginResponse()
	other.AccessToken = "AT2"
	other.RefreshToken = "RT2"
	other.UserID = 9
	endpoint.On("Login", mock.Anything, validCredentials).Return(other, nil).Once()

	store.mu.Lock()
	store.crashSet[authclient.AccessTokenKey] = true
	store.mu.Unlock()

	assert.Panics(t, func() {
		c.Login(ctx, validCredentials)
	})

	access, refresh := storedPair(store)
	assert.Empty(t, access)
	assert.Equal(t, "RT2", refresh)

	store.mu.Lock()
	store.crashSet = map[string]bool{}
	store.mu.Unlock()

	restarted := authclient.NewController(&MockIdentityEndpoint{}, store)
	assert.Equal(t, authclient.StateUnauthenticated, restarted.State())
	assert.False(t, restarted.Snapshot().HasTokens())
	assertStoreEmpty(t, store)
}
