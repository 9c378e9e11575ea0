package authclient

import (
	"strings"
	"sync"
)

const (
	// AccessTokenKey is the store key holding the access token. Its absence
	// is the canonical "no session" signal.
	AccessTokenKey = "access_token"
	// RefreshTokenKey is the store key holding the refresh token.
	RefreshTokenKey = "refresh_token"
)

// SessionStore is durable key/value persistence for the token pair. Calls are
// synchronous and each key is written atomically; pairing the two keys is the
// Controller's job.
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// StoreKeys names the two logical keys inside a SessionStore.
type StoreKeys struct {
	Access  string
	Refresh string
}

// DefaultStoreKeys returns the access-token and refresh-token keys.
func DefaultStoreKeys() StoreKeys {
	return StoreKeys{Access: AccessTokenKey, Refresh: RefreshTokenKey}
}

// NamespacedStoreKeys prefixes the default keys, e.g. per profile or tenant.
func NamespacedStoreKeys(namespace string) StoreKeys {
	namespace = strings.Trim(strings.TrimSpace(namespace), ".")
	if namespace == "" {
		return DefaultStoreKeys()
	}
	return StoreKeys{
		Access:  namespace + "." + AccessTokenKey,
		Refresh: namespace + "." + RefreshTokenKey,
	}
}

// tokenVault pairs the two keys of a SessionStore. A missing access token
// means no session, so every write removes the stored access token first,
// then sets the refresh token and sets the new access token last. Purges also
// remove the access token first. A crash at any step leaves either the old
// pair, a lone refresh token, or the new pair.
type tokenVault struct {
	store SessionStore
	keys  StoreKeys
}

func (v tokenVault) load() (TokenPair, bool) {
	access, ok := v.store.Get(v.keys.Access)
	if !ok || strings.TrimSpace(access) == "" {
		return TokenPair{}, false
	}

	refresh, ok := v.store.Get(v.keys.Refresh)
	if !ok || strings.TrimSpace(refresh) == "" {
		return TokenPair{AccessToken: access}, false
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, true
}

func (v tokenVault) hasAccessToken() bool {
	access, ok := v.store.Get(v.keys.Access)
	return ok && strings.TrimSpace(access) != ""
}

func (v tokenVault) refreshToken() (string, bool) {
	refresh, ok := v.store.Get(v.keys.Refresh)
	if !ok || strings.TrimSpace(refresh) == "" {
		return "", false
	}
	return refresh, true
}

func (v tokenVault) save(pair TokenPair) error {
	if err := v.store.Remove(v.keys.Access); err != nil {
		return wrapStoreError(err, "remove", v.keys.Access)
	}
	if err := v.store.Set(v.keys.Refresh, pair.RefreshToken); err != nil {
		return wrapStoreError(err, "set", v.keys.Refresh)
	}
	if err := v.store.Set(v.keys.Access, pair.AccessToken); err != nil {
		return wrapStoreError(err, "set", v.keys.Access)
	}
	return nil
}

// purge removes both keys and reports the first failure. The refresh key is
// removed even when removing the access key failed.
func (v tokenVault) purge() error {
	var first error
	if err := v.store.Remove(v.keys.Access); err != nil {
		first = wrapStoreError(err, "remove", v.keys.Access)
	}
	if err := v.store.Remove(v.keys.Refresh); err != nil && first == nil {
		first = wrapStoreError(err, "remove", v.keys.Refresh)
	}
	return first
}

// MemoryStore is a process-local SessionStore. It does not survive restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
