package storage

import (
	"context"
	"time"
)

// Change describes a write observed on a KVStore.
type Change struct {
	Key     string
	Removed bool
}

// KVStore is the lowest storage layer: raw bytes by string key.
// Implementations emit a Change to every subscriber after each successful Set or Remove,
// so other consumers of the same store can observe writes.
type KVStore interface {
	// Get returns the stored value.
	// Returns ErrKeyNotFound if the key is absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error
	Remove(ctx context.Context, key string) error

	// OnChange subscribes fn to change signals and returns the unsubscribe function
	OnChange(fn func(Change)) (unsubscribe func())
}

// RecordMeta tracks local writes and pushes of a sync key.
// Seq counts local writes; PushedSeq is the last Seq handed to the transport.
// Dirty compares only these counters: times from the other side come from another clock.
type RecordMeta struct {
	UpdatedAt time.Time `json:"updated_at"` // время последней локальной записи (локальные часы)
	RemoteAt  time.Time `json:"remote_at"`  // время записи на другой стороне для последнего pull
	Seq       uint64    `json:"seq"`
	PushedSeq uint64    `json:"pushed_seq"`
}

// Dirty reports whether the key has local writes that were not pushed yet.
func (m RecordMeta) Dirty() bool {
	return m.Seq > m.PushedSeq
}

// Touch records a local write at now.
func (m *RecordMeta) Touch(now time.Time) {
	m.Seq++
	m.UpdatedAt = now
}

// Applied records a pulled value written by the other side at `at`; the key becomes clean.
func (m *RecordMeta) Applied(at time.Time) {
	m.PushedSeq = m.Seq
	m.RemoteAt = at
}

// Pushed records that the local write number seq reached the transport.
func (m *RecordMeta) Pushed(seq uint64) {
	m.PushedSeq = max(m.PushedSeq, min(seq, m.Seq))
}

// RecordStorage is a KVStore that also keeps per-key sync bookkeeping.
// Set marks the key as written locally (dirty); ApplyRemote does not.
type RecordStorage interface {
	KVStore

	// ApplyRemote replaces the value of key with a pulled value written at `at`
	// (the other side's clock) and records the key as in sync
	ApplyRemote(ctx context.Context, key string, value []byte, at time.Time) error

	// GetRecordMeta returns bookkeeping for key; zero value if the key was never written
	GetRecordMeta(ctx context.Context, key string) (RecordMeta, error)

	// MarkPushed records that local write number seq of key reached the transport.
	// Writes made after seq keep the key dirty
	MarkPushed(ctx context.Context, key string, seq uint64) error
}

// MetadataStorage defines interface for storing client sync metadata.
// Cursors are kept per scope (the transport kind): a cursor of one transport
// means nothing to another.
type MetadataStorage interface {
	// SaveCursor saves the cursor returned by the last successful pull in scope
	SaveCursor(ctx context.Context, scope, cursor string) error

	// GetCursor retrieves the cursor of the last successful pull in scope
	// Returns "" if no pull has succeeded yet
	GetCursor(ctx context.Context, scope string) (string, error)
}

// QuarantinedRecord is a pulled record that failed schema validation.
type QuarantinedRecord struct {
	ReceivedAt time.Time `json:"received_at"`
	Key        string    `json:"key"`
	Reason     string    `json:"reason"`
	Value      []byte    `json:"value"`
}

// QuarantineStorage keeps rejected records for inspection instead of applying them.
type QuarantineStorage interface {
	// Quarantine stores the rejected record; the latest one per key wins
	Quarantine(ctx context.Context, rec QuarantinedRecord) error

	// ListQuarantined returns all quarantined records ordered by key
	ListQuarantined(ctx context.Context) ([]QuarantinedRecord, error)
}

// Store is everything the sync orchestrator needs from a local store.
type Store interface {
	RecordStorage
	MetadataStorage
	QuarantineStorage
}
