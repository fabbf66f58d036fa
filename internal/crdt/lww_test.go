package crdt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/petalsync/internal/models"
)

func record(key models.SyncKey, value string, at time.Time) *models.SyncRecord {
	return &models.SyncRecord{Key: key, Value: json.RawMessage(value), UpdatedAt: at}
}

func TestLWWMap_Put(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	m := NewLWWMap()
	assert.True(t, m.Put(record(models.KeyStock, `{"rose":5}`, base)))
	assert.True(t, m.Put(record(models.KeyStock, `{"rose":4}`, base.Add(time.Minute))), "later write wins")
	assert.False(t, m.Put(record(models.KeyStock, `{"rose":9}`, base)), "earlier write loses")

	got := m.Get(models.KeyStock)
	require.NotNil(t, got)
	assert.Equal(t, `{"rose":4}`, string(got.Value))
	assert.Nil(t, m.Get(models.KeyOrders))
}

func TestLWWMap_GetReturnsCopy(t *testing.T) {
	m := NewLWWMap()
	m.Put(record(models.KeyAboutPage, `{"a":1}`, time.Now()))

	got := m.Get(models.KeyAboutPage)
	got.Value[1] = 'b'

	assert.Equal(t, `{"a":1}`, string(m.Get(models.KeyAboutPage).Value))
}

func TestLWWMap_Merge(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	a := NewLWWMap()
	a.Put(record(models.KeyOrders, `[{"id":"a"}]`, base))
	a.Put(record(models.KeyStock, `{"rose":1}`, base.Add(2*time.Minute)))

	b := NewLWWMap()
	b.Put(record(models.KeyOrders, `[{"id":"b"}]`, base.Add(time.Minute)))
	b.Put(record(models.KeyStock, `{"rose":2}`, base))
	b.Put(record(models.KeyMessages, `[]`, base))

	ab := NewLWWMapFrom(a.Records())
	ab.Merge(b)
	ba := NewLWWMapFrom(b.Records())
	ba.Merge(a)

	// Слияние коммутативно
	assert.Equal(t, ab.Records(), ba.Records())
	assert.Equal(t, 3, ab.Len())
	assert.Equal(t, `[{"id":"b"}]`, string(ab.Get(models.KeyOrders).Value))
	assert.Equal(t, `{"rose":1}`, string(ab.Get(models.KeyStock).Value))

	// И идемпотентно
	before := ab.Records()
	ab.Merge(b)
	ab.Merge(ab)
	assert.Equal(t, before, ab.Records())
}

func TestLWWMap_MergeTieIsOrderIndependent(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	a := NewLWWMap()
	a.Put(record(models.KeyStock, `{"rose":1}`, at))
	b := NewLWWMap()
	b.Put(record(models.KeyStock, `{"rose":2}`, at))

	ab := NewLWWMapFrom(a.Records())
	ab.Merge(b)
	ba := NewLWWMapFrom(b.Records())
	ba.Merge(a)

	assert.Equal(t, ab.Records(), ba.Records())
	assert.Equal(t, `{"rose":2}`, string(ab.Get(models.KeyStock).Value))

	// меньшее значение с тем же временем не вытесняет большее
	assert.False(t, ab.Put(record(models.KeyStock, `{"rose":1}`, at)))
}
