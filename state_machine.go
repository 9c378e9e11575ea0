package authclient

import (
	"context"
	"sync"
	"time"
)

// State is a node of the session lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateRestoring       State = "restoring"
	StateAuthenticated   State = "authenticated"
	StateRefreshingToken State = "refreshing_token"
	StateLoggingOut      State = "logging_out"
)

// IsValid checks if the state is one of the known lifecycle states
func (s State) IsValid() bool {
	switch s {
	case StateUnauthenticated, StateRestoring, StateAuthenticated, StateRefreshingToken, StateLoggingOut:
		return true
	default:
		return false
	}
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	From State
	To   State
	// Reason names the operation that caused the move (login, refresh, ...).
	Reason string
	At     time.Time
}

// TransitionHook runs after a transition is committed.
type TransitionHook func(ctx context.Context, tc TransitionContext)

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*sessionStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *sessionStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithTransitionHook registers a hook executed after every committed transition.
// Hooks run while the controller holds its session lock and must not call
// back into the Controller.
func WithTransitionHook(h TransitionHook) StateMachineOption {
	return func(sm *sessionStateMachine) {
		if h != nil {
			sm.hooks = append(sm.hooks, h)
		}
	}
}

// WithStateMachineLogger overrides the logger used for rejected transitions.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *sessionStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

type sessionStateMachine struct {
	mu          sync.Mutex
	current     State
	transitions map[State]map[State]struct{}
	hooks       []TransitionHook
	now         func() time.Time
	logger      Logger
}

func newSessionStateMachine(initial State, opts ...StateMachineOption) *sessionStateMachine {
	sm := &sessionStateMachine{
		current: initial,
		transitions: map[State]map[State]struct{}{
			StateUnauthenticated: {
				StateRestoring:     {},
				StateAuthenticated: {},
				StateLoggingOut:    {},
			},
			StateRestoring: {
				StateAuthenticated:   {},
				StateUnauthenticated: {},
				StateLoggingOut:      {},
			},
			StateAuthenticated: {
				StateRestoring:       {},
				StateAuthenticated:   {},
				StateRefreshingToken: {},
				StateLoggingOut:      {},
			},
			StateRefreshingToken: {
				StateAuthenticated:   {},
				StateUnauthenticated: {},
				StateLoggingOut:      {},
			},
			StateLoggingOut: {
				StateUnauthenticated: {},
			},
		},
		now: time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	if sm.logger == nil {
		_, sm.logger = ResolveLogger("authclient.state_machine", nil, nil)
	}

	return sm
}

func (sm *sessionStateMachine) Current() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

func (sm *sessionStateMachine) CanTransition(from, to State) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// Transition moves to target if the table allows it.
func (sm *sessionStateMachine) Transition(ctx context.Context, target State, reason string) error {
	sm.mu.Lock()
	from := sm.current

	if !target.IsValid() || !sm.CanTransition(from, target) {
		sm.mu.Unlock()
		sm.logger.Warn("session state transition rejected", "from", from, "to", target, "reason", reason)
		return ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"from":   from,
			"to":     target,
			"reason": reason,
		})
	}

	sm.current = target
	tc := TransitionContext{From: from, To: target, Reason: reason, At: sm.now()}
	hooks := append([]TransitionHook(nil), sm.hooks...)
	sm.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, tc)
	}

	return nil
}

// Force is used only by the fail-closed path: it always lands on
// unauthenticated, walking through logging_out when required.
func (sm *sessionStateMachine) Force(ctx context.Context, reason string) {
	current := sm.Current()
	if current == StateUnauthenticated {
		return
	}

	if !sm.CanTransition(current, StateUnauthenticated) {
		_ = sm.Transition(ctx, StateLoggingOut, reason)
	}

	if err := sm.Transition(ctx, StateUnauthenticated, reason); err != nil {
		sm.mu.Lock()
		sm.current = StateUnauthenticated
		sm.mu.Unlock()
	}
}
