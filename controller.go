package authclient

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRefreshSkew is how early EnsureAccessToken refreshes a JWT.
	DefaultRefreshSkew = 30 * time.Second
	// DefaultLogoutTimeout bounds the best-effort remote logout call.
	DefaultLogoutTimeout = 5 * time.Second

	refreshFlightKey = "refresh"
)

// ControllerOption customizes Controller construction.
type ControllerOption func(*Controller)

// WithLogger overrides the controller logger.
func WithLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		c.loggerProvider, c.logger = ResolveLogger("authclient.controller", c.loggerProvider, logger)
	}
}

// WithLoggerProvider resolves the controller logger from provider.
func WithLoggerProvider(provider LoggerProvider) ControllerOption {
	return func(c *Controller) {
		c.loggerProvider, c.logger = ResolveLogger("authclient.controller", provider, c.logger)
	}
}

// WithActivitySink sets the ActivitySink used to publish session events.
func WithActivitySink(sink ActivitySink) ControllerOption {
	return func(c *Controller) {
		c.activitySink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithRefreshSkew sets how long before expiry EnsureAccessToken refreshes.
func WithRefreshSkew(skew time.Duration) ControllerOption {
	return func(c *Controller) {
		if skew >= 0 {
			c.refreshSkew = skew
		}
	}
}

// WithLogoutTimeout bounds the remote logout notification.
func WithLogoutTimeout(timeout time.Duration) ControllerOption {
	return func(c *Controller) {
		if timeout > 0 {
			c.logoutTimeout = timeout
		}
	}
}

// WithStoreKeys overrides the two keys used inside the SessionStore.
func WithStoreKeys(keys StoreKeys) ControllerOption {
	return func(c *Controller) {
		if keys.Access != "" && keys.Refresh != "" && keys.Access != keys.Refresh {
			c.vault.keys = keys
		}
	}
}

// WithStateMachineOptions forwards options to the session state machine.
func WithStateMachineOptions(opts ...StateMachineOption) ControllerOption {
	return func(c *Controller) {
		c.smOptions = append(c.smOptions, opts...)
	}
}

// Controller owns the session lifecycle: login, logout, restore and token
// refresh. It is the only writer of session state; everybody else reads
// through Snapshot or Subscribe.
//
// Entry points are serialized: a login issued while a restore or refresh is
// in flight waits for it to finish. Concurrent refresh requests share one
// network call.
type Controller struct {
	endpoint IdentityEndpoint
	vault    tokenVault
	sm       *sessionStateMachine

	// mu guards session; opMu serializes operations.
	mu      sync.RWMutex
	session Session
	opMu    sync.Mutex
	flight  singleflight.Group

	subsMu  sync.Mutex
	subs    map[uint64]func(Session)
	nextSub uint64

	logger         Logger
	loggerProvider LoggerProvider
	activitySink   ActivitySink
	now            func() time.Time
	refreshSkew    time.Duration
	logoutTimeout  time.Duration
	smOptions      []StateMachineOption
}

// NewController builds a Controller and loads any persisted token pair. The
// initial state is restoring when an access token is stored, unauthenticated
// otherwise; call RestoreSession to settle it.
func NewController(endpoint IdentityEndpoint, store SessionStore, opts ...ControllerOption) *Controller {
	if store == nil {
		store = NewMemoryStore()
	}
	if endpoint == nil {
		endpoint = unavailableEndpoint{}
	}

	c := &Controller{
		endpoint:      endpoint,
		vault:         tokenVault{store: store, keys: DefaultStoreKeys()},
		subs:          map[uint64]func(Session){},
		activitySink:  noopActivitySink{},
		now:           time.Now,
		refreshSkew:   DefaultRefreshSkew,
		logoutTimeout: DefaultLogoutTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.logger == nil {
		c.loggerProvider, c.logger = ResolveLogger("authclient.controller", c.loggerProvider, nil)
	}

	smOpts := append([]StateMachineOption{
		WithStateMachineClock(c.now),
		WithStateMachineLogger(c.logger),
	}, c.smOptions...)

	initial := StateUnauthenticated
	pair, complete := c.vault.load()
	switch {
	case complete:
		initial = StateRestoring
		c.session = Session{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			Loading:      true,
		}
	case pair.AccessToken != "" || c.vault.hasStrayRefresh():
		c.logger.Warn("discarding incomplete persisted session")
		if err := c.vault.purge(); err != nil {
			c.logger.Error("failed to discard incomplete session", "error", err)
		}
	}

	c.sm = newSessionStateMachine(initial, smOpts...)
	c.session.State = initial

	return c
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.clone()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.State
}

// User returns the authenticated user, if any.
func (c *Controller) User() (*User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.session.Authenticated || c.session.User == nil {
		return nil, false
	}
	return c.session.User.Clone(), true
}

// OrganizationID returns the tenant scope of the authenticated user.
func (c *Controller) OrganizationID() (int64, bool) {
	user, ok := c.User()
	if !ok || user.OrganizationID <= 0 {
		return 0, false
	}
	return user.OrganizationID, true
}

// Subscribe registers fn for session changes. fn receives snapshots in
// commit order and must not call Controller operations synchronously.
func (c *Controller) Subscribe(fn func(Session)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			c.subsMu.Unlock()
		})
	}
}

// RestoreSession validates a persisted session with the identity endpoint.
// Any failure purges the session: an undecodable or rejected session is
// never treated as authenticated.
func (c *Controller) RestoreSession(ctx context.Context) Result[*User] {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	ctx = context.WithoutCancel(ctx)

	pair, complete := c.vault.load()
	if !complete {
		c.purge(ctx, "restore: no persisted session")
		return Fail[*User](ErrNoSession, "no persisted session")
	}

	if err := c.commit(ctx, StateRestoring, "restore", func(s *Session) {
		s.AccessToken = pair.AccessToken
		s.RefreshToken = pair.RefreshToken
		s.Authenticated = false
		s.Loading = true
	}); err != nil {
		c.purge(ctx, "restore: "+err.Error())
		return Fail[*User](err, "")
	}

	user, err := c.endpoint.Me(ctx, pair.AccessToken)
	if err == nil {
		err = user.Validate()
	}
	if err != nil {
		c.logger.Info("session restore rejected", "error", err)
		c.emit(ctx, ActivityEventRestoreFailure, 0, map[string]any{"error": err.Error()})
		c.purge(ctx, "restore failed")
		return Fail[*User](err, "")
	}

	if err := c.commit(ctx, StateAuthenticated, "restore", func(s *Session) {
		s.User = user.Clone()
		s.Authenticated = true
		s.Loading = false
	}); err != nil {
		c.purge(ctx, "restore: "+err.Error())
		return Fail[*User](err, "")
	}

	c.logger.Debug("session restored", "user_id", user.ID)
	c.emit(ctx, ActivityEventRestoreSuccess, user.ID, nil)

	return Ok(user.Clone(), "session restored")
}

// Login exchanges credentials for a session. On failure the current session
// is left as it was.
func (c *Controller) Login(ctx context.Context, credentials Credentials) Result[*User] {
	if err := credentials.Validate(); err != nil {
		return Fail[*User](err, "")
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	ctx = context.WithoutCancel(ctx)

	resp, err := c.endpoint.Login(ctx, credentials)
	if err == nil && (resp == nil || !resp.Tokens().Complete()) {
		err = ErrMalformedPayload.Clone().WithMetadata(map[string]any{
			"reason": "login response without token pair",
		})
	}

	var user *User
	if err == nil {
		user = resp.User()
		err = user.Validate()
	}

	if err != nil {
		c.logger.Info("login failed", "email", credentials.Email, "error", err)
		c.emit(ctx, ActivityEventLoginFailure, 0, map[string]any{
			"email": credentials.Email,
			"error": err.Error(),
		})
		return Fail[*User](err, "")
	}

	previous := c.Snapshot()
	if !c.canEnter(StateAuthenticated) {
		err := ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"from": previous.State,
			"to":   StateAuthenticated,
		})
		return Fail[*User](err, "")
	}

	pair := resp.Tokens()
	if err := c.vault.save(pair); err != nil {
		c.logger.Error("failed to persist session", "error", err)
		c.rollbackStore(previous)
		c.emit(ctx, ActivityEventLoginFailure, user.ID, map[string]any{
			"email": credentials.Email,
			"error": err.Error(),
		})
		return Fail[*User](err, "")
	}

	if err := c.commit(ctx, StateAuthenticated, "login", func(s *Session) {
		s.AccessToken = pair.AccessToken
		s.RefreshToken = pair.RefreshToken
		s.User = user.Clone()
		s.Authenticated = true
		s.Loading = false
	}); err != nil {
		c.purge(ctx, "login: "+err.Error())
		return Fail[*User](err, "")
	}

	c.logger.Info("login succeeded", "user_id", user.ID, "organization_id", user.OrganizationID)
	c.emit(ctx, ActivityEventLoginSuccess, user.ID, map[string]any{"email": user.Email})

	message := resp.Message
	if message == "" {
		message = "login succeeded"
	}
	return Ok(user.Clone(), message)
}

// Logout tells the identity endpoint to revoke the refresh token and then
// purges the local session. The local purge happens no matter what the
// endpoint answers; the returned value reports whether it acknowledged.
func (c *Controller) Logout(ctx context.Context) Result[bool] {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	ctx = context.WithoutCancel(ctx)

	snap := c.Snapshot()
	refreshToken := snap.RefreshToken
	if refreshToken == "" {
		refreshToken, _ = c.vault.refreshToken()
	}

	if err := c.commit(ctx, StateLoggingOut, "logout", func(s *Session) {
		s.Loading = true
	}); err != nil {
		c.logger.Warn("logout transition rejected", "error", err)
	}

	acknowledged := false
	message := "logged out"
	if refreshToken != "" {
		remoteCtx, cancel := context.WithTimeout(ctx, c.logoutTimeout)
		err := c.endpoint.Logout(remoteCtx, refreshToken)
		cancel()
		if err != nil {
			c.logger.Warn("remote logout failed, purging locally", "error", err)
			message = "logged out locally"
		} else {
			acknowledged = true
		}
	}

	var userID int64
	if snap.User != nil {
		userID = snap.User.ID
	}

	c.purge(ctx, "logout")
	c.emit(ctx, ActivityEventLogout, userID, map[string]any{"acknowledged": acknowledged})

	return Ok(acknowledged, message)
}

// RefreshAccessToken replaces the token pair using the refresh token. With
// no refresh token it returns a no-session result without side effects. A
// failed refresh purges the session.
//
// Concurrent callers share a single refresh. A caller whose context ends
// stops waiting, the shared refresh still completes.
func (c *Controller) RefreshAccessToken(ctx context.Context) Result[string] {
	return c.sharedRefresh(ctx, "")
}

// EnsureAccessToken returns an access token that is not about to expire,
// refreshing it first when its exp claim falls within the refresh skew.
// Persisted tokens are not handed out until RestoreSession confirms them.
func (c *Controller) EnsureAccessToken(ctx context.Context) Result[string] {
	snap := c.Snapshot()
	if !snap.Authenticated || !snap.HasTokens() {
		return Fail[string](ErrNoSession, "no active session")
	}

	if !tokenNeedsRefresh(snap.AccessToken, c.now(), c.refreshSkew) {
		return Ok(snap.AccessToken, "")
	}

	return c.sharedRefresh(ctx, snap.AccessToken)
}

func (c *Controller) sharedRefresh(ctx context.Context, observed string) Result[string] {
	ch := c.flight.DoChan(refreshFlightKey, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), observed), nil
	})

	select {
	case res := <-ch:
		result, ok := res.Val.(Result[string])
		if !ok {
			return Fail[string](ErrSessionInvariant, "unexpected refresh result")
		}
		return result
	case <-ctx.Done():
		return Fail[string](ctx.Err(), "stopped waiting for token refresh")
	}
}

func (c *Controller) refresh(ctx context.Context, observed string) Result[string] {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	snap := c.Snapshot()
	if !snap.HasTokens() {
		if token, ok := c.vault.refreshToken(); !ok || token == "" {
			return Fail[string](ErrNoSession, "no refresh token")
		}
		c.purge(ctx, "refresh: store and session disagree")
		return Fail[string](ErrNoSession, "no refresh token")
	}

	if observed != "" && snap.AccessToken != observed {
		// Someone already replaced the token we saw as stale.
		return Ok(snap.AccessToken, "")
	}

	resting := snap.State
	if resting == StateAuthenticated {
		if err := c.commit(ctx, StateRefreshingToken, "refresh", nil); err != nil {
			c.purge(ctx, "refresh: "+err.Error())
			return Fail[string](err, "")
		}
	}

	pair, err := c.endpoint.Refresh(ctx, snap.RefreshToken)
	if err == nil && (pair == nil || !pair.Complete()) {
		err = ErrMalformedPayload.Clone().WithMetadata(map[string]any{
			"reason": "refresh response without token pair",
		})
	}
	if err == nil {
		err = c.vault.save(*pair)
	}

	var userID int64
	if snap.User != nil {
		userID = snap.User.ID
	}

	if err != nil {
		c.logger.Info("token refresh failed, purging session", "error", err)
		c.emit(ctx, ActivityEventRefreshFailure, userID, map[string]any{"error": err.Error()})
		c.purge(ctx, "refresh failed")
		return Fail[string](err, "")
	}

	if err := c.commit(ctx, resting, "refresh", func(s *Session) {
		s.AccessToken = pair.AccessToken
		s.RefreshToken = pair.RefreshToken
	}); err != nil {
		c.purge(ctx, "refresh: "+err.Error())
		return Fail[string](err, "")
	}

	c.emit(ctx, ActivityEventRefreshSuccess, userID, nil)

	return Ok(pair.AccessToken, "token refreshed")
}

// commit applies mutate and moves to target under the session lock, then
// notifies subscribers. The snapshot is checked against the token pair
// invariants before anything is published.
func (c *Controller) commit(ctx context.Context, target State, reason string, mutate func(*Session)) error {
	c.mu.Lock()

	from := c.session.State
	next := c.session
	if mutate != nil {
		mutate(&next)
	}
	next.State = target

	if err := next.CheckInvariants(); err != nil {
		c.mu.Unlock()
		return err
	}

	if from != target {
		if err := c.sm.Transition(ctx, target, reason); err != nil {
			c.mu.Unlock()
			return err
		}
	}

	c.session = next
	snap := next.clone()
	c.mu.Unlock()

	if from != target {
		c.emit(ctx, ActivityEventStateChanged, userIDOf(snap), map[string]any{
			"from":   from,
			"to":     target,
			"reason": reason,
		})
	}

	c.notify(snap)
	return nil
}

// purge clears the store and the in-memory session and lands on
// unauthenticated regardless of the current state.
func (c *Controller) purge(ctx context.Context, reason string) {
	if err := c.vault.purge(); err != nil {
		c.logger.Error("failed to purge persisted session", "error", err, "reason", reason)
	}

	c.mu.Lock()
	from := c.session.State
	var userID int64
	if c.session.User != nil {
		userID = c.session.User.ID
	}
	c.sm.Force(ctx, reason)
	c.session = Session{State: StateUnauthenticated}
	snap := c.session.clone()
	c.mu.Unlock()

	c.logger.Debug("session purged", "reason", reason, "from", from)
	c.emit(ctx, ActivityEventSessionPurged, userID, map[string]any{
		"reason": reason,
		"from":   from,
	})

	c.notify(snap)
}

// rollbackStore puts back the pair held before a failed login write.
func (c *Controller) rollbackStore(previous Session) {
	var err error
	if previous.HasTokens() {
		err = c.vault.save(previous.Tokens())
	} else {
		err = c.vault.purge()
	}
	if err != nil {
		c.logger.Error("failed to roll back session store", "error", err)
	}
}

func (c *Controller) canEnter(target State) bool {
	current := c.State()
	return current == target || c.sm.CanTransition(current, target)
}

func (c *Controller) notify(snap Session) {
	c.subsMu.Lock()
	listeners := make([]func(Session), 0, len(c.subs))
	for _, fn := range c.subs {
		listeners = append(listeners, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range listeners {
		fn(snap.clone())
	}
}

func (c *Controller) emit(ctx context.Context, eventType ActivityEventType, userID int64, metadata map[string]any) {
	sink := normalizeActivitySink(c.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: c.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if from, ok := event.Metadata["from"].(State); ok {
		event.FromState = from
	}
	if to, ok := event.Metadata["to"].(State); ok {
		event.ToState = to
	}

	if err := sink.Record(ctx, event); err != nil {
		c.logger.Warn("activity sink record error", "error", err, "event", eventType)
	}
}

func userIDOf(s Session) int64 {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}

func (v tokenVault) hasStrayRefresh() bool {
	_, ok := v.refreshToken()
	return ok
}

type unavailableEndpoint struct{}

func (unavailableEndpoint) Login(context.Context, Credentials) (*LoginResponse, error) {
	return nil, errEndpointMissing()
}

func (unavailableEndpoint) Me(context.Context, string) (*User, error) {
	return nil, errEndpointMissing()
}

func (unavailableEndpoint) Logout(context.Context, string) error {
	return errEndpointMissing()
}

func (unavailableEndpoint) Refresh(context.Context, string) (*TokenPair, error) {
	return nil, errEndpointMissing()
}

func errEndpointMissing() error {
	return goerrors.New("identity endpoint is not configured", goerrors.CategoryOperation).
		WithTextCode(TextCodeNetwork)
}
