// Package activitymap flattens session activity events into log and audit
// friendly entries.
package activitymap

import (
	"context"
	"strconv"
	"time"

	authclient "github.com/goliatone/go-auth-client"
)

const (
	DefaultChannel = "session"
	AnonymousActor = "anonymous"
)

// Entry is a flattened ActivityEvent.
type Entry struct {
	Actor     string         `json:"actor"`
	Verb      string         `json:"verb"`
	Channel   string         `json:"channel"`
	FromState string         `json:"from_state,omitempty"`
	ToState   string         `json:"to_state,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	At        time.Time      `json:"at"`
}

// Option customizes the mapper.
type Option func(*mapper)

// WithChannel tags entries with channel.
func WithChannel(channel string) Option {
	return func(m *mapper) {
		if channel != "" {
			m.channel = channel
		}
	}
}

// WithClock stamps events that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(m *mapper) {
		if now != nil {
			m.now = now
		}
	}
}

type mapper struct {
	channel string
	now     func() time.Time
}

func newMapper(opts []Option) mapper {
	m := mapper{channel: DefaultChannel, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Map flattens event into an Entry.
func Map(event authclient.ActivityEvent, opts ...Option) Entry {
	return newMapper(opts).entry(event)
}

// Sink returns an ActivitySink handing every mapped entry to fn.
func Sink(fn func(Entry), opts ...Option) authclient.ActivitySink {
	m := newMapper(opts)
	return authclient.ActivitySinkFunc(func(_ context.Context, event authclient.ActivityEvent) error {
		if fn != nil {
			fn(m.entry(event))
		}
		return nil
	})
}

func (m mapper) entry(event authclient.ActivityEvent) Entry {
	at := event.OccurredAt
	if at.IsZero() {
		at = m.now()
	}

	actor := AnonymousActor
	if event.UserID > 0 {
		actor = strconv.FormatInt(event.UserID, 10)
	}

	return Entry{
		Actor:     actor,
		Verb:      string(event.EventType),
		Channel:   m.channel,
		FromState: string(event.FromState),
		ToState:   string(event.ToState),
		Details:   details(event.Metadata),
		At:        at.UTC(),
	}
}

// details copies metadata without the from/to keys the controller mirrors
// from the state fields.
func details(metadata map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range metadata {
		if key == "from" || key == "to" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
