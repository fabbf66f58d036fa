package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/petalsync/internal/client/storage"
)

func TestSharedFile_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	s, err := NewSharedFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	_, err = s.Get(ctx, "orders")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "orders", []byte(`[]`)))
	value, err := s.Get(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(value))

	require.NoError(t, s.Remove(ctx, "orders"))
	_, err = s.Get(ctx, "orders")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestSharedFile_TwoHandlesSeeEachOther(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	admin, err := NewSharedFile(path)
	require.NoError(t, err)
	storefront, err := NewSharedFile(path)
	require.NoError(t, err)

	// файл не держится открытым между операциями, поэтому второй дескриптор работает
	require.NoError(t, admin.Set(ctx, "sync-inbox:storefront", []byte(`{"records":{}}`)))

	value, err := storefront.Get(ctx, "sync-inbox:storefront")
	require.NoError(t, err)
	assert.JSONEq(t, `{"records":{}}`, string(value))
}

func TestSharedFile_OnChange(t *testing.T) {
	ctx := context.Background()
	s, err := NewSharedFile(filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)

	var changes []storage.Change
	unsubscribe := s.OnChange(func(c storage.Change) { changes = append(changes, c) })

	require.NoError(t, s.Set(ctx, "stock", []byte(`{}`)))
	require.NoError(t, s.Remove(ctx, "stock"))
	unsubscribe()
	require.NoError(t, s.Set(ctx, "stock", []byte(`{}`)))

	assert.Equal(t, []storage.Change{{Key: "stock"}, {Key: "stock", Removed: true}}, changes)
}

func TestNewSharedFile_InvalidPath(t *testing.T) {
	_, err := NewSharedFile(filepath.Join(t.TempDir(), "missing", "dir", "shared.db"))
	assert.Error(t, err)
}
