package authclient

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess   ActivityEventType = "session.login.success"
	ActivityEventLoginFailure   ActivityEventType = "session.login.failure"
	ActivityEventLogout         ActivityEventType = "session.logout"
	ActivityEventRestoreSuccess ActivityEventType = "session.restore.success"
	ActivityEventRestoreFailure ActivityEventType = "session.restore.failure"
	ActivityEventRefreshSuccess ActivityEventType = "session.refresh.success"
	ActivityEventRefreshFailure ActivityEventType = "session.refresh.failure"
	ActivityEventSessionPurged  ActivityEventType = "session.purged"
	ActivityEventStateChanged   ActivityEventType = "session.state.changed"
)

// ActivityEvent captures audit-friendly information about a session change.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     int64
	FromState  State
	ToState    State
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
