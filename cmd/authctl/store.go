package main

import (
	"context"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/store/boltstore"
	"github.com/goliatone/go-auth-client/store/sqlstore"
	goerrors "github.com/goliatone/go-errors"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closer interface {
	Close() error
}

// openStore opens the SessionStore named by cfg.StoreDriver.
func openStore(ctx context.Context, cfg authclient.Config, logger authclient.Logger) (authclient.SessionStore, closer, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case authclient.StoreDriverMemory:
		return authclient.NewMemoryStore(), nopCloser{}, nil
	case authclient.StoreDriverBolt:
		store, err := boltstore.Open(cfg.StorePath, boltstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case authclient.StoreDriverSQLite:
		store, err := sqlstore.Open(ctx, cfg.StorePath, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, goerrors.New("unknown session store driver", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": cfg.StoreDriver})
	}
}
