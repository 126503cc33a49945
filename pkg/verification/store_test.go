package verification

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.DigestFor(ctx, "agent_001")
	assert.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, store.Put(ctx, "agent_001", "digest-1"))
	got, err := store.DigestFor(ctx, "agent_001")
	require.NoError(t, err)
	assert.Equal(t, "digest-1", got)

	// Put overwrites.
	require.NoError(t, store.Put(ctx, "agent_001", "digest-2"))
	got, err = store.DigestFor(ctx, "agent_001")
	require.NoError(t, err)
	assert.Equal(t, "digest-2", got)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(openTestDB(t), []byte("test-site-secret"))
	require.NoError(t, err)

	_, err = store.DigestFor(ctx, "agent_001")
	assert.ErrorIs(t, err, ErrNoCredential)

	d := newTestDigester(t)
	digest := d.Digest("blue horizon")
	require.NoError(t, store.Put(ctx, "agent_001", digest))

	got, err := store.DigestFor(ctx, "agent_001")
	require.NoError(t, err)
	assert.Equal(t, digest, got)
}

func TestSQLiteStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(openTestDB(t), []byte("test-site-secret"))
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "agent_001", "first"))
	require.NoError(t, store.Put(ctx, "agent_001", "second"))

	got, err := store.DigestFor(ctx, "agent_001")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestSQLiteStoreCiphertextAtRest(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store, err := NewSQLiteStore(db, []byte("test-site-secret"))
	require.NoError(t, err)

	digest := newTestDigester(t).Digest("blue horizon")
	require.NoError(t, store.Put(ctx, "agent_001", digest))

	var raw string
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT digest FROM admin_credentials WHERE agent_id = ?`, "agent_001",
	).Scan(&raw))
	assert.NotEqual(t, digest, raw)
	assert.NotContains(t, raw, digest)
}

func TestSQLiteStoreWrongSecretFailsDecrypt(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	store, err := NewSQLiteStore(db, []byte("secret-a"))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "agent_001", "digest"))

	other, err := NewSQLiteStore(db, []byte("secret-b"))
	require.NoError(t, err)
	_, err = other.DigestFor(ctx, "agent_001")
	assert.Error(t, err)
}
