package authclient_test

import (
	"context"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFromContext(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		wantUser bool
		wantOK   bool
	}{
		{
			name:     "empty context",
			setupCtx: context.Background,
		},
		{
			name: "unauthenticated session",
			setupCtx: func() context.Context {
				return authclient.WithSession(context.Background(), authclient.Session{State: authclient.StateUnauthenticated})
			},
			wantOK: true,
		},
		{
			name: "authenticated session",
			setupCtx: func() context.Context {
				return authclient.WithSession(context.Background(), authclient.Session{
					AccessToken:   "a",
					RefreshToken:  "r",
					Authenticated: true,
					User:          profile(),
					State:         authclient.StateAuthenticated,
				})
			},
			wantOK:   true,
			wantUser: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.setupCtx()

			_, ok := authclient.SessionFromContext(ctx)
			assert.Equal(t, tt.wantOK, ok)

			user, ok := authclient.UserFromContext(ctx)
			assert.Equal(t, tt.wantUser, ok)
			if tt.wantUser {
				require.NotNil(t, user)
				assert.Equal(t, int64(7), user.ID)
			}
		})
	}
}

func TestTokenSourceFromContext(t *testing.T) {
	_, ok := authclient.TokenSourceFromContext(context.Background())
	assert.False(t, ok)

	_, ok = authclient.TokenSourceFromContext(authclient.WithTokenSource(context.Background(), nil))
	assert.False(t, ok)

	c := authclient.NewController(nil, nil)
	source, ok := authclient.TokenSourceFromContext(authclient.WithTokenSource(context.Background(), c))
	require.True(t, ok)
	assert.Equal(t, authclient.KindNoSession, source.EnsureAccessToken(context.Background()).Kind)
}
