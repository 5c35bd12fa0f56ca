package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyStore(t *testing.T) *KeyStore {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "keys.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ks, err := NewKeyStore(db)
	require.NoError(t, err)
	t.Cleanup(ks.Close)
	return ks
}

func TestKeyStore_OpenWithoutKeys(t *testing.T) {
	ks := newKeyStore(t)
	perms, err := ks.Authenticate(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, perms.Has(ScopeManage))
}

func TestKeyStore_Lifecycle(t *testing.T) {
	ks := newKeyStore(t)
	ctx := context.Background()

	first, rawFirst, err := ks.Create(ctx, []string{ScopeModelRead}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, []string{ScopeAll}, first.Scopes, "first key is always master")
	assert.True(t, strings.HasPrefix(rawFirst, KeyPrefix))

	reader, rawReader, err := ks.Create(ctx, []string{ScopeModelRead, ScopeCorpusRead}, "reader")
	require.NoError(t, err)

	_, err = ks.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, err = ks.Authenticate(ctx, "cmk_wrong")
	assert.ErrorIs(t, err, ErrUnknownKey)

	perms, err := ks.Authenticate(ctx, rawReader)
	require.NoError(t, err)
	assert.True(t, perms.Has(ScopeModelRead))
	assert.True(t, perms.Has(ScopeCorpusRead))
	assert.False(t, perms.Has(ScopeCorpusWrite))

	perms, err = ks.Authenticate(ctx, rawFirst)
	require.NoError(t, err)
	assert.True(t, perms.Has(ScopeCorpusWrite))

	keys, err := ks.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "reader", keys[1].Description)

	assert.ErrorIs(t, ks.Delete(ctx, 1), ErrPrimaryKey)
	require.NoError(t, ks.Delete(ctx, reader.ID))
	assert.ErrorIs(t, ks.Delete(ctx, reader.ID), ErrUnknownKey)

	_, err = ks.Authenticate(ctx, rawReader)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestKeyStore_UnknownScope(t *testing.T) {
	ks := newKeyStore(t)
	_, _, err := ks.Create(context.Background(), []string{"everything"}, "")
	assert.ErrorIs(t, err, ErrUnknownScope)
}
