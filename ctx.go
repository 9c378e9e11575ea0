package authclient

import (
	"context"
)

var sessionCtxKey = &contextKey{"session"}
var tokenSourceCtxKey = &contextKey{"token_source"}

type contextKey struct {
	name string
}

// WithSession sets the session snapshot in the given context
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session.clone())
}

// SessionFromContext finds the session snapshot in the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// UserFromContext returns the authenticated user of the session in ctx.
func UserFromContext(ctx context.Context) (*User, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok || !session.Authenticated || session.User == nil {
		return nil, false
	}
	return session.User, true
}

// WithTokenSource sets the TokenSource used by outbound clients.
func WithTokenSource(ctx context.Context, source TokenSource) context.Context {
	return context.WithValue(ctx, tokenSourceCtxKey, source)
}

// TokenSourceFromContext extracts the TokenSource from the context
func TokenSourceFromContext(ctx context.Context) (TokenSource, bool) {
	raw, ok := ctx.Value(tokenSourceCtxKey).(TokenSource)
	return raw, ok && raw != nil
}
