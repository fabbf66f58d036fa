package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/petalsync/internal/client/storage"
)

func TestStorage_KV(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "orders")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	value := []byte(`[{"id":"o1"}]`)
	require.NoError(t, s.Set(ctx, "orders", value))

	// Хранилище держит копию
	value[0] = '{'
	got, err := s.Get(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"o1"}]`, string(got))

	require.NoError(t, s.Remove(ctx, "orders"))
	_, err = s.Get(ctx, "orders")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStorage_ChangeSignal(t *testing.T) {
	ctx := context.Background()
	s := New()

	var keys []string
	unsubscribe := s.OnChange(func(c storage.Change) {
		keys = append(keys, c.Key)
	})

	require.NoError(t, s.Set(ctx, "a", []byte(`1`)))
	require.NoError(t, s.ApplyRemote(ctx, "b", []byte(`2`), time.Now()))
	unsubscribe()
	unsubscribe()
	require.NoError(t, s.Set(ctx, "c", []byte(`3`)))

	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestStorage_SubscriberMayWrite(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.OnChange(func(c storage.Change) {
		if c.Key == "inbox" && !c.Removed {
			_ = s.Remove(ctx, "inbox")
		}
	})

	require.NoError(t, s.Set(ctx, "inbox", []byte(`{}`)))
	_, err := s.Get(ctx, "inbox")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestStorage_DirtyTracking(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s := NewWithClock(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "stock", []byte(`{}`)))
	meta, err := s.GetRecordMeta(ctx, "stock")
	require.NoError(t, err)
	assert.True(t, meta.Dirty())

	require.NoError(t, s.MarkPushed(ctx, "stock", meta.Seq))
	meta, err = s.GetRecordMeta(ctx, "stock")
	require.NoError(t, err)
	assert.False(t, meta.Dirty())

	require.NoError(t, s.ApplyRemote(ctx, "orders", []byte(`[]`), now.Add(time.Hour)))
	meta, err = s.GetRecordMeta(ctx, "orders")
	require.NoError(t, err)
	assert.False(t, meta.Dirty())
}

func TestStorage_CursorAndQuarantine(t *testing.T) {
	ctx := context.Background()
	s := New()

	cursor, err := s.GetCursor(ctx, "remote")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, s.SaveCursor(ctx, "remote", "9"))
	cursor, err = s.GetCursor(ctx, "remote")
	require.NoError(t, err)
	assert.Equal(t, "9", cursor)

	// курсоры разных транспортов не пересекаются
	cursor, err = s.GetCursor(ctx, "shared-store")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, s.Quarantine(ctx, storage.QuarantinedRecord{Key: "stock", Reason: "bad"}))
	require.NoError(t, s.Quarantine(ctx, storage.QuarantinedRecord{Key: "orders", Reason: "bad"}))

	records, err := s.ListQuarantined(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "orders", records[0].Key)
}

func TestStorage_DirtyIgnoresRemoteClock(t *testing.T) {
	ctx := context.Background()
	local := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	now := local
	s := NewWithClock(func() time.Time { return now })

	// запись пришла с другой стороны, чьи часы спешат на минуту
	require.NoError(t, s.ApplyRemote(ctx, "stock", []byte(`{"rose":4}`), local.Add(time.Minute)))

	now = local.Add(10 * time.Second)
	require.NoError(t, s.Set(ctx, "stock", []byte(`{"rose":3}`)))

	meta, err := s.GetRecordMeta(ctx, "stock")
	require.NoError(t, err)
	assert.True(t, meta.Dirty())
	assert.Equal(t, local.Add(time.Minute), meta.RemoteAt)
}

func TestStorage_MarkPushedKeepsLaterWrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, "orders", []byte(`[]`)))
	meta, err := s.GetRecordMeta(ctx, "orders")
	require.NoError(t, err)
	pushedSeq := meta.Seq

	// запись во время push
	require.NoError(t, s.Set(ctx, "orders", []byte(`[{"id":"o1"}]`)))
	require.NoError(t, s.MarkPushed(ctx, "orders", pushedSeq))

	meta, err = s.GetRecordMeta(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, meta.Dirty())

	require.NoError(t, s.MarkPushed(ctx, "missing", 1))
}
