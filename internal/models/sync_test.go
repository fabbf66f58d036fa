package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllKeys(t *testing.T) {
	keys := AllKeys()
	require.Len(t, keys, 10)
	assert.Equal(t, KeyCurrentUser, keys[0])
	assert.Equal(t, KeyContactPage, keys[9])

	// Изменение возвращенного среза не должно влиять на пакет
	keys[0] = "mutated"
	assert.Equal(t, KeyCurrentUser, AllKeys()[0])
}

func TestParseSyncKey(t *testing.T) {
	key, err := ParseSyncKey("orders")
	require.NoError(t, err)
	assert.Equal(t, KeyOrders, key)

	_, err = ParseSyncKey("adminUpdates")
	assert.Error(t, err)
}

func TestSyncRecord_IsNewerThan(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		current  *SyncRecord
		other    *SyncRecord
		expected bool
	}{
		{
			name:     "later write wins",
			current:  &SyncRecord{Key: KeyOrders, UpdatedAt: now.Add(time.Second)},
			other:    &SyncRecord{Key: KeyOrders, UpdatedAt: now},
			expected: true,
		},
		{
			name:     "earlier write loses",
			current:  &SyncRecord{Key: KeyOrders, UpdatedAt: now},
			other:    &SyncRecord{Key: KeyOrders, UpdatedAt: now.Add(time.Second)},
			expected: false,
		},
		{
			name:     "same record",
			current:  &SyncRecord{Key: KeyOrders, Value: json.RawMessage(`[1]`), UpdatedAt: now},
			other:    &SyncRecord{Key: KeyOrders, Value: json.RawMessage(`[1]`), UpdatedAt: now},
			expected: true,
		},
		{
			name:     "tie goes to the larger value",
			current:  &SyncRecord{Key: KeyOrders, Value: json.RawMessage(`[2]`), UpdatedAt: now},
			other:    &SyncRecord{Key: KeyOrders, Value: json.RawMessage(`[1]`), UpdatedAt: now},
			expected: true,
		},
		{
			name:     "tie loses to the larger value",
			current:  &SyncRecord{Key: KeyOrders, Value: json.RawMessage(`[1]`), UpdatedAt: now},
			other:    &SyncRecord{Key: KeyOrders, Value: json.RawMessage(`[2]`), UpdatedAt: now},
			expected: false,
		},
		{
			name:     "nil other",
			current:  &SyncRecord{Key: KeyOrders, UpdatedAt: now},
			other:    nil,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.current.IsNewerThan(tt.other))
		})
	}
}

func TestSyncRecord_Clone(t *testing.T) {
	original := &SyncRecord{
		Key:       KeyStock,
		Value:     json.RawMessage(`{"rose":3}`),
		UpdatedAt: time.Now(),
	}

	clone := original.Clone()
	assert.Equal(t, original, clone)

	clone.Value[2] = 'X'
	assert.Equal(t, `{"rose":3}`, string(original.Value))
}

func TestRecordSet_KeysOrdered(t *testing.T) {
	set := RecordSet{
		KeyMessages:    {Key: KeyMessages},
		KeyCurrentUser: {Key: KeyCurrentUser},
		KeyOrders:      {Key: KeyOrders},
	}

	assert.Equal(t, []SyncKey{KeyCurrentUser, KeyOrders, KeyMessages}, set.Keys())
	assert.Len(t, set.Values(), 3)
}

func TestPaymentRequestStatus_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		from     PaymentRequestStatus
		to       PaymentRequestStatus
		expected bool
	}{
		{PaymentRequestPending, PaymentRequestPendingWithReceipt, true},
		{PaymentRequestPending, PaymentRequestConfirmed, true},
		{PaymentRequestPendingWithReceipt, PaymentRequestPendingWithReceipt, true},
		{PaymentRequestPendingWithReceipt, PaymentRequestConfirmed, true},
		{PaymentRequestPendingWithReceipt, PaymentRequestPending, false},
		{PaymentRequestConfirmed, PaymentRequestPending, false},
		{PaymentRequestConfirmed, PaymentRequestPendingWithReceipt, false},
		{PaymentRequestConfirmed, PaymentRequestConfirmed, false},
		{PaymentRequestPending, "rejected", false},
		{"rejected", PaymentRequestConfirmed, false},
		{"rejected", PaymentRequestPendingWithReceipt, false},
		{"", PaymentRequestConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestOrderKind_IsRequest(t *testing.T) {
	assert.False(t, KindOrder.IsRequest())
	assert.True(t, KindBooking.IsRequest())
	assert.True(t, KindSpecialOrder.IsRequest())
	assert.True(t, KindCustomized.IsRequest())
}
