package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/client/storage/memory"
	"github.com/iudanet/petalsync/internal/models"
)

func record(key models.SyncKey, value string, at time.Time) models.SyncRecord {
	return models.SyncRecord{Key: key, Value: json.RawMessage(value), UpdatedAt: at}
}

func newSharedPair(t *testing.T) (*memory.Storage, *SharedStore, *SharedStore) {
	t.Helper()

	kv := memory.New()
	admin, err := NewSharedStore(kv, models.RoleAdmin, testLogger())
	require.NoError(t, err)
	storefront, err := NewSharedStore(kv, models.RoleStorefront, testLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		admin.Close()
		storefront.Close()
	})
	return kv, admin, storefront
}

func TestNewSharedStore_InvalidRole(t *testing.T) {
	_, err := NewSharedStore(memory.New(), models.Role("cashier"), testLogger())
	assert.Error(t, err)
}

func TestSharedStore_PushThenPeerPulls(t *testing.T) {
	ctx := context.Background()
	kv, admin, storefront := newSharedPair(t)
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	ack, err := storefront.Push(ctx, models.RecordSet{
		models.KeyOrders: record(models.KeyOrders, `[{"id":"o1","status":"pending"}]`, at),
	})
	require.NoError(t, err)
	assert.Equal(t, []models.SyncKey{models.KeyOrders}, ack.Accepted)

	// значение записано под своим ключом
	value, err := kv.Get(ctx, "orders")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"o1","status":"pending"}]`, string(value))

	result, err := admin.Pull(ctx, "")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, at, result.Records[models.KeyOrders].UpdatedAt)
	assert.NotEmpty(t, result.Cursor)

	// доставка не более одного раза
	again, err := admin.Pull(ctx, result.Cursor)
	require.NoError(t, err)
	assert.True(t, again.Empty())
	assert.Equal(t, result.Cursor, again.Cursor)

	// отправитель не получает собственные записи
	own, err := storefront.Pull(ctx, "")
	require.NoError(t, err)
	assert.True(t, own.Empty())
}

func TestSharedStore_InboxMergeKeepsNewest(t *testing.T) {
	ctx := context.Background()
	_, admin, storefront := newSharedPair(t)
	t1 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	_, err := storefront.Push(ctx, models.RecordSet{
		models.KeyMessages: record(models.KeyMessages, `[{"id":"m2"}]`, t2),
		models.KeyStock:    record(models.KeyStock, `{"tulips":1}`, t1),
	})
	require.NoError(t, err)
	_, err = storefront.Push(ctx, models.RecordSet{
		models.KeyMessages: record(models.KeyMessages, `[{"id":"m1"}]`, t1),
	})
	require.NoError(t, err)

	result, err := admin.Pull(ctx, "")
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.JSONEq(t, `[{"id":"m2"}]`, string(result.Records[models.KeyMessages].Value))
	assert.JSONEq(t, `{"tulips":1}`, string(result.Records[models.KeyStock].Value))
}

func TestSharedStore_NotificationsStayLocal(t *testing.T) {
	ctx := context.Background()
	kv, admin, storefront := newSharedPair(t)

	ack, err := admin.Push(ctx, models.RecordSet{
		models.KeyNotifications: record(models.KeyNotifications, `[{"id":"n1"}]`, time.Now()),
	})
	require.NoError(t, err)
	assert.Empty(t, ack.Accepted)

	_, err = kv.Get(ctx, "notifications")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	result, err := storefront.Pull(ctx, "")
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestSharedStore_IdenticalValueNotRewritten(t *testing.T) {
	ctx := context.Background()
	kv, admin, _ := newSharedPair(t)

	require.NoError(t, kv.Set(ctx, "stock", []byte(`{"roses":5}`)))
	before, err := kv.GetRecordMeta(ctx, "stock")
	require.NoError(t, err)

	_, err = admin.Push(ctx, models.RecordSet{
		models.KeyStock: record(models.KeyStock, `{"roses":5}`, time.Now()),
	})
	require.NoError(t, err)

	after, err := kv.GetRecordMeta(ctx, "stock")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSharedStore_WakeOnPeerWrite(t *testing.T) {
	ctx := context.Background()
	_, admin, storefront := newSharedPair(t)

	_, err := storefront.Push(ctx, models.RecordSet{
		models.KeyRequests: record(models.KeyRequests, `[]`, time.Now()),
	})
	require.NoError(t, err)

	select {
	case <-admin.Wake():
	case <-time.After(time.Second):
		t.Fatal("admin was not woken by storefront push")
	}

	select {
	case <-storefront.Wake():
		t.Fatal("storefront must not be woken by its own push")
	default:
	}
}

func TestSharedStore_CorruptInboxIsDropped(t *testing.T) {
	ctx := context.Background()
	kv, admin, _ := newSharedPair(t)

	require.NoError(t, kv.Set(ctx, InboxKey(models.RoleAdmin), []byte(`not json`)))

	_, err := admin.Pull(ctx, "")
	assert.Error(t, err)

	_, err = kv.Get(ctx, InboxKey(models.RoleAdmin))
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	result, err := admin.Pull(ctx, "")
	require.NoError(t, err)
	assert.True(t, result.Empty())
}
