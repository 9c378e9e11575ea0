// Package devserver is an in-process identity and policy endpoint for local
// development and end-to-end tests. It issues HS256 access tokens and
// rotating opaque refresh tokens, and keeps all data in memory.
package devserver

import (
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/policy"
	"github.com/goliatone/go-router"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
	DefaultIssuer     = "authclient-devserver"
)

// Option customizes the server.
type Option func(*Server)

// WithSigningKey sets the HS256 key.
func WithSigningKey(key []byte) Option {
	return func(s *Server) {
		if len(key) > 0 {
			s.signingKey = key
		}
	}
}

// WithAccessTTL sets the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL sets the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock injects the clock used for token timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPasswordCost sets the bcrypt cost for seeded accounts.
func WithPasswordCost(cost int) Option {
	return func(s *Server) {
		s.passwordCost = cost
	}
}

// WithLogger sets the server logger.
func WithLogger(logger authclient.Logger) Option {
	return func(s *Server) {
		_, s.logger = authclient.ResolveLogger("devserver", nil, logger)
	}
}

// Server serves the identity and policy endpoints.
type Server struct {
	srv          router.Server[*fiber.App]
	dir          *directory
	tokens       *tokenIssuer
	signingKey   []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	passwordCost int
	now          func() time.Time
	logger       authclient.Logger
}

// New builds a Server with an empty directory.
func New(opts ...Option) *Server {
	s := &Server{
		dir:          newDirectory(),
		signingKey:   []byte("authclient-devserver-signing-key"),
		accessTTL:    DefaultAccessTTL,
		refreshTTL:   DefaultRefreshTTL,
		passwordCost: bcrypt.DefaultCost,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		_, s.logger = authclient.ResolveLogger("devserver", nil, nil)
	}

	s.tokens = newTokenIssuer(s.signingKey, DefaultIssuer, s.accessTTL, s.refreshTTL, s.now)

	s.srv = router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			AppName:               "authclient-devserver",
			DisableStartupMessage: true,
			StrictRouting:         false,
			ErrorHandler:          s.errorHandler,
		})
	})
	s.routes(s.srv.Router())

	return s
}

// App exposes the fiber app, mostly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.srv.WrappedRouter()
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("devserver listening", "addr", addr)
	return s.srv.Serve(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("devserver listening", "addr", ln.Addr().String())
	return s.App().Listener(ln)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.App().Shutdown()
}

// AddUser registers an account able to log in with email and password.
func (s *Server) AddUser(email, password string, organizationID int64, roles ...string) (int64, error) {
	hash := randomPasswordHash(s.passwordCost)
	if password != "" {
		var err error
		hash, err = HashPassword(password, s.passwordCost)
		if err != nil {
			return 0, err
		}
	}
	acct := s.dir.addAccount(email, hash, organizationID, roles)
	return acct.id, nil
}

// AddRole stores a role directly, bypassing the endpoint.
func (s *Server) AddRole(role policy.Role) (policy.Role, error) {
	return s.dir.saveRole(role)
}

// AddResource stores a resource directly.
func (s *Server) AddResource(resource policy.Resource) (policy.Resource, error) {
	return s.dir.saveResource(resource)
}

// AddAction stores an action directly.
func (s *Server) AddAction(action policy.Action) (policy.Action, error) {
	return s.dir.saveAction(action)
}

// AddPolicy stores a policy directly.
func (s *Server) AddPolicy(p policy.Policy) (policy.Policy, error) {
	return s.dir.savePolicy(p)
}

// RevokeAll drops every outstanding refresh token.
func (s *Server) RevokeAll() {
	s.tokens.mu.Lock()
	s.tokens.refresh = map[string]refreshGrant{}
	s.tokens.mu.Unlock()
}

// OutstandingRefreshTokens reports how many refresh tokens can still be used.
func (s *Server) OutstandingRefreshTokens() int {
	return s.tokens.outstanding()
}

// Seed loads a small demo organization: admin@example.com and
// viewer@example.com, both with password "secret".
func (s *Server) Seed() error {
	const orgID = 1

	admin, err := s.AddRole(policy.Role{
		OrganizationID: orgID,
		Name:           "ADMIN",
		Description:    "Full access",
		PermissionKeys: []string{"USERS:*", "POLICIES:*"},
		Active:         true,
	})
	if err != nil {
		return err
	}
	viewer, err := s.AddRole(policy.Role{
		OrganizationID: orgID,
		Name:           "VIEWER",
		Description:    "Read only",
		Active:         true,
	})
	if err != nil {
		return err
	}

	users, err := s.AddResource(policy.Resource{OrganizationID: orgID, Name: "Users", Code: "USERS"})
	if err != nil {
		return err
	}
	read, err := s.AddAction(policy.Action{OrganizationID: orgID, Name: "Read", Code: "READ"})
	if err != nil {
		return err
	}
	if _, err := s.AddAction(policy.Action{OrganizationID: orgID, Name: "Delete", Code: "DELETE"}); err != nil {
		return err
	}

	if _, err := s.AddPolicy(policy.Policy{
		OrganizationID: orgID,
		Role:           viewer,
		Resource:       users,
		Action:         read,
		Description:    "Viewers can list users",
		Active:         true,
	}); err != nil {
		return err
	}

	if _, err := s.AddUser("admin@example.com", "secret", orgID, admin.Name); err != nil {
		return err
	}
	if _, err := s.AddUser("viewer@example.com", "secret", orgID, viewer.Name); err != nil {
		return err
	}
	return nil
}
