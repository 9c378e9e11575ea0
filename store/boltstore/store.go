// Package boltstore persists the session token pair in a BoltDB file so a
// session survives process restarts.
package boltstore

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"go.etcd.io/bbolt"
)

const sessionBucket = "session"

// Store provides a BoltDB-backed SessionStore.
type Store struct {
	db     *bbolt.DB
	bucket []byte
	logger authclient.Logger
}

var _ authclient.SessionStore = (*Store)(nil)

// Option customizes the store.
type Option func(*Store)

// WithBucket overrides the bucket name, e.g. to keep several profiles in one file.
func WithBucket(name string) Option {
	return func(s *Store) {
		if strings.TrimSpace(name) != "" {
			s.bucket = []byte(name)
		}
	}
}

// WithLogger sets the logger used to report read failures.
func WithLogger(logger authclient.Logger) Option {
	return func(s *Store) {
		_, s.logger = authclient.ResolveLogger("authclient.store.bolt", nil, logger)
	}
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	store := &Store{db: db, bucket: []byte(sessionBucket)}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.logger == nil {
		_, store.logger = authclient.ResolveLogger("authclient.store.bolt", nil, nil)
	}

	if err := store.ensureBucket(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the value stored under key. Read failures are logged and
// reported as a missing key, which the controller treats as "no session".
func (s *Store) Get(key string) (string, bool) {
	if s == nil || s.db == nil {
		return "", false
	}

	var value string
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("session bucket is missing")
		}
		payload := bucket.Get([]byte(key))
		if payload == nil {
			return nil
		}
		value = string(payload)
		found = true
		return nil
	})
	if err != nil {
		s.logger.Error("session store read failed", "key", key, "error", err)
		return "", false
	}

	return value, found
}

// Set persists value under key.
func (s *Store) Set(key, value string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("session key is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("session bucket is missing")
		}
		return bucket.Put([]byte(key), []byte(value))
	})
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("session bucket is missing")
		}
		return bucket.Delete([]byte(key))
	})
}

// Keys lists the keys currently stored, in byte order.
func (s *Store) Keys() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("session bucket is missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *Store) ensureBucket() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(s.bucket); err != nil {
			return fmt.Errorf("create session bucket: %w", err)
		}
		return nil
	})
}
