package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/store/sqlstore"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), "file:"+path)
	require.NoError(t, err)
	return store
}

func TestStoreUpsertsAndRemoves(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	defer store.Close()

	_, found := store.Get(authclient.AccessTokenKey)
	assert.False(t, found)

	require.NoError(t, store.Set(authclient.RefreshTokenKey, "RT1"))
	require.NoError(t, store.Set(authclient.AccessTokenKey, "AT1"))
	require.NoError(t, store.Set(authclient.AccessTokenKey, "AT2"))

	value, found := store.Get(authclient.AccessTokenKey)
	require.True(t, found)
	assert.Equal(t, "AT2", value)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{authclient.AccessTokenKey, authclient.RefreshTokenKey}, keys)

	require.NoError(t, store.Remove(authclient.AccessTokenKey))
	require.NoError(t, store.Remove(authclient.AccessTokenKey))

	_, found = store.Get(authclient.AccessTokenKey)
	assert.False(t, found)

	keys, err = store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{authclient.RefreshTokenKey}, keys)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	first := openStore(t, path)
	require.NoError(t, first.Set(authclient.RefreshTokenKey, "RT1"))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	defer second.Close()

	value, found := second.Get(authclient.RefreshTokenKey)
	require.True(t, found)
	assert.Equal(t, "RT1", value)
}

func TestNamespacedKeysShareTable(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	defer store.Close()

	work := authclient.NamespacedStoreKeys("work")
	require.NoError(t, store.Set(work.Access, "WORK"))
	require.NoError(t, store.Set(authclient.AccessTokenKey, "DEFAULT"))

	value, found := store.Get(work.Access)
	require.True(t, found)
	assert.Equal(t, "WORK", value)

	value, found = store.Get(authclient.AccessTokenKey)
	require.True(t, found)
	assert.Equal(t, "DEFAULT", value)
}

func TestRepositoryReportsMissingKey(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	defer store.Close()

	_, err := store.Records().GetByKey(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestStoreRejectsBadInput(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), "")
	assert.Error(t, err)

	_, err = sqlstore.New(context.Background(), nil)
	assert.Error(t, err)

	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	defer store.Close()
	assert.Error(t, store.Set(" ", "value"))
}

func TestRepositoryKeepsRecordIdentityAcrossWrites(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(authclient.AccessTokenKey, "AT1"))

	first, err := store.Records().GetByKey(ctx, authclient.AccessTokenKey)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)

	require.NoError(t, store.Set(authclient.AccessTokenKey, "AT2"))

	second, err := store.Records().GetByKey(ctx, authclient.AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "AT2", second.Value)
}

func TestRepositoryDeleteByKey(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(authclient.RefreshTokenKey, "RT1"))
	require.NoError(t, store.Set(authclient.AccessTokenKey, "AT1"))

	db := store.DB()
	require.NoError(t, store.Records().DeleteByKeyTx(ctx, db, authclient.RefreshTokenKey))
	require.NoError(t, store.Records().DeleteByKeyTx(ctx, db, authclient.RefreshTokenKey))

	_, err := store.Records().GetByKey(ctx, authclient.RefreshTokenKey)
	assert.True(t, repository.IsRecordNotFound(err))

	value, found := store.Get(authclient.AccessTokenKey)
	require.True(t, found)
	assert.Equal(t, "AT1", value)
}

func TestStoreOverwritesWithEmptyValue(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	defer store.Close()

	require.NoError(t, store.Set(authclient.AccessTokenKey, "AT1"))
	require.NoError(t, store.Set(authclient.AccessTokenKey, ""))

	value, found := store.Get(authclient.AccessTokenKey)
	require.True(t, found)
	assert.Equal(t, "", value)
}
