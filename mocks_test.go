package authclient_test

import (
	"context"
	"errors"
	"sync"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/mock"
)

// MockIdentityEndpoint implements authclient.IdentityEndpoint
type MockIdentityEndpoint struct {
	mock.Mock
}

func (m *MockIdentityEndpoint) Login(ctx context.Context, credentials authclient.Credentials) (*authclient.LoginResponse, error) {
	args := m.Called(ctx, credentials)
	resp, _ := args.Get(0).(*authclient.LoginResponse)
	return resp, args.Error(1)
}

func (m *MockIdentityEndpoint) Me(ctx context.Context, accessToken string) (*authclient.User, error) {
	args := m.Called(ctx, accessToken)
	user, _ := args.Get(0).(*authclient.User)
	return user, args.Error(1)
}

func (m *MockIdentityEndpoint) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockIdentityEndpoint) Refresh(ctx context.Context, refreshToken string) (*authclient.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	pair, _ := args.Get(0).(*authclient.TokenPair)
	return pair, args.Error(1)
}

// flakyStore wraps a MemoryStore and fails writes to selected keys. Keys in
// crashSet panic instead, standing in for a process dying mid-write.
type flakyStore struct {
	*authclient.MemoryStore
	mu       sync.Mutex
	failSet  map[string]bool
	failRm   map[string]bool
	crashSet map[string]bool
	setCalls []string
	ops      []string
}

func newFlakyStore() *flakyStore {
	return &flakyStore{
		MemoryStore: authclient.NewMemoryStore(),
		failSet:     map[string]bool{},
		failRm:      map[string]bool{},
		crashSet:    map[string]bool{},
	}
}

func (s *flakyStore) Set(key, value string) error {
	s.mu.Lock()
	s.setCalls = append(s.setCalls, key)
	s.ops = append(s.ops, "set:"+key)
	fail := s.failSet[key]
	crash := s.crashSet[key]
	s.mu.Unlock()
	if crash {
		panic("session store crashed writing " + key)
	}
	if fail {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(key, value)
}

func (s *flakyStore) Remove(key string) error {
	s.mu.Lock()
	s.ops = append(s.ops, "remove:"+key)
	fail := s.failRm[key]
	s.mu.Unlock()
	if fail {
		return errors.New("read only")
	}
	return s.MemoryStore.Remove(key)
}

func (s *flakyStore) operations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

func (s *flakyStore) writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.setCalls...)
}

// recordingSink captures activity events.
type recordingSink struct {
	mu     sync.Mutex
	events []authclient.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event authclient.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []authclient.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]authclient.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
