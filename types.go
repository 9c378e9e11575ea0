package authclient

import (
	"context"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the logging contract shared by every component.
type Logger = glog.Logger

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// IdentityEndpoint is the remote service that issues and validates tokens.
type IdentityEndpoint interface {
	// Login exchanges credentials for a token pair and user fields.
	Login(ctx context.Context, credentials Credentials) (*LoginResponse, error)
	// Me resolves the user that owns accessToken.
	Me(ctx context.Context, accessToken string) (*User, error)
	// Logout revokes refreshToken. Callers treat it as best-effort.
	Logout(ctx context.Context, refreshToken string) error
	// Refresh mints a new token pair from refreshToken.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// SessionView is the read-only face of the session handed to consumers.
type SessionView interface {
	Snapshot() Session
	State() State
	User() (*User, bool)
	OrganizationID() (int64, bool)
	Subscribe(fn func(Session)) (unsubscribe func())
}

// TokenSource yields a usable access token, refreshing it if needed.
type TokenSource interface {
	EnsureAccessToken(ctx context.Context) Result[string]
}

var _ SessionView = (*Controller)(nil)
var _ TokenSource = (*Controller)(nil)
