// Package sqlstore persists the session token pair in a SQL table through
// bun. SQLite (via sqliteshim) is the default target.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// TokenRecord is a single persisted session key.
type TokenRecord struct {
	bun.BaseModel `bun:"table:session_tokens,alias:st"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Key           string     `bun:"token_key,notnull,unique" json:"key"`
	Value         string     `bun:"token_value,notnull" json:"-"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Store is a bun-backed SessionStore.
type Store struct {
	db      *bun.DB
	records *TokenRepository
	timeout time.Duration
	logger  authclient.Logger
	now     func() time.Time
}

var _ authclient.SessionStore = (*Store)(nil)

// Option customizes the store.
type Option func(*Store)

// WithTimeout bounds each database call.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger sets the logger used to report read failures.
func WithLogger(logger authclient.Logger) Option {
	return func(s *Store) {
		_, s.logger = authclient.ResolveLogger("authclient.store.sql", nil, logger)
	}
}

const selectTokensSQL = `SELECT * FROM "session_tokens" AS "st" ORDER BY "st"."token_key" ASC;`

// TokenRepository reads and writes token records by key.
type TokenRepository struct {
	repository.Repository[*TokenRecord]
	db bun.IDB
}

// NewTokenRepository returns the repository for token records. Records are
// identified by their key.
func NewTokenRepository(db *bun.DB) *TokenRepository {
	repo := repository.NewRepository[*TokenRecord](db, repository.ModelHandlers[*TokenRecord]{
		NewRecord: func() *TokenRecord { return &TokenRecord{} },
		GetID: func(record *TokenRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *TokenRecord, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token_key"
		},
	})

	return &TokenRepository{
		Repository: repo,
		db:         db,
	}
}

// GetByKey returns the record stored under key.
func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*TokenRecord, error) {
	return r.GetByKeyTx(ctx, r.db, key)
}

// GetByKeyTx returns the record stored under key.
func (r *TokenRepository) GetByKeyTx(ctx context.Context, tx bun.IDB, key string) (*TokenRecord, error) {
	record, err := r.Repository.GetByIdentifierTx(ctx, tx, key)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(repository.ErrRecordNotFound, goerrors.CategoryNotFound, "session key not found").
				WithMetadata(map[string]any{
					"key": key,
				})
		}
		return nil, err
	}
	return record, nil
}

// UpsertTx writes record under record.Key, keeping the identity of an
// existing row.
func (r *TokenRepository) UpsertTx(ctx context.Context, tx bun.IDB, record *TokenRecord) (*TokenRecord, error) {
	existing, err := r.GetByKeyTx(ctx, tx, record.Key)
	if err == nil {
		record.ID = existing.ID
		return r.Repository.UpdateTx(ctx, tx, record,
			repository.UpdateSetColumn("token_value", record.Value),
			repository.UpdateSetColumn("updated_at", record.UpdatedAt),
		)
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return r.Repository.CreateTx(ctx, tx, record)
}

// DeleteByKeyTx removes the record stored under key. A missing key is not
// an error.
func (r *TokenRepository) DeleteByKeyTx(ctx context.Context, tx bun.IDB, key string) error {
	return r.Repository.DeleteWhereTx(ctx, tx, repository.DeleteBy("token_key", "=", key))
}

// Keys lists the stored keys in order.
func (r *TokenRepository) Keys(ctx context.Context) ([]string, error) {
	records, err := r.Repository.Raw(ctx, selectTokensSQL)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(records))
	for _, record := range records {
		if record != nil {
			keys = append(keys, record.Key)
		}
	}
	return keys, nil
}

// Open opens a SQLite database at dsn and prepares the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	store, err := New(ctx, bun.NewDB(sqldb, sqlitedialect.New()), opts...)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing bun database and creates the table if needed.
func New(ctx context.Context, db *bun.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	store := &Store{
		db:      db,
		records: NewTokenRepository(db),
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.logger == nil {
		_, store.logger = authclient.ResolveLogger("authclient.store.sql", nil, nil)
	}

	if _, err := db.NewCreateTable().
		Model((*TokenRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("create session_tokens table: %w", err)
	}

	return store, nil
}

// Records exposes the token repository.
func (s *Store) Records() *TokenRepository {
	return s.records
}

// DB exposes the underlying database.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Keys lists the stored keys.
func (s *Store) Keys() ([]string, error) {
	ctx, cancel := s.context()
	defer cancel()
	return s.records.Keys(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the value stored under key. Read failures are logged and
// reported as a missing key.
func (s *Store) Get(key string) (string, bool) {
	ctx, cancel := s.context()
	defer cancel()

	record, err := s.records.GetByKey(ctx, key)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			s.logger.Error("session store read failed", "key", key, "error", err)
		}
		return "", false
	}
	if record == nil {
		return "", false
	}
	return record.Value, true
}

// Set upserts value under key.
func (s *Store) Set(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("session key is required")
	}

	ctx, cancel := s.context()
	defer cancel()

	now := s.now()
	record := &TokenRecord{
		Key:       key,
		Value:     value,
		UpdatedAt: &now,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := s.records.UpsertTx(ctx, tx, record)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert session key %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	ctx, cancel := s.context()
	defer cancel()

	if err := s.records.DeleteByKeyTx(ctx, s.db, key); err != nil {
		return fmt.Errorf("delete session key %q: %w", key, err)
	}
	return nil
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
