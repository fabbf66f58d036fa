// Package memory implements the client stores in process memory.
// Two clients running in one process (admin console and storefront preview)
// share a single instance as their shared store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/petalsync/internal/client/storage"
)

var _ storage.Store = (*Storage)(nil)

// Storage is an in-memory storage.Store.
type Storage struct {
	storage.Signal

	values     map[string][]byte
	meta       map[string]storage.RecordMeta
	quarantine map[string]storage.QuarantinedRecord
	cursors    map[string]string
	now        func() time.Time
	mu         sync.RWMutex
}

// New creates an empty store.
func New() *Storage {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty store stamping local writes with now.
func NewWithClock(now func() time.Time) *Storage {
	return &Storage{
		values:     make(map[string][]byte),
		meta:       make(map[string]storage.RecordMeta),
		quarantine: make(map[string]storage.QuarantinedRecord),
		cursors:    make(map[string]string),
		now:        now,
	}
}

// Get returns a copy of the value stored under key.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return clone(value), nil
}

// Set stores value and marks key dirty.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.values[key] = clone(value)
	meta := s.meta[key]
	meta.Touch(s.now())
	s.meta[key] = meta
	s.mu.Unlock()

	s.Emit(storage.Change{Key: key})
	return nil
}

// Remove deletes key.
func (s *Storage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	delete(s.meta, key)
	s.mu.Unlock()

	s.Emit(storage.Change{Key: key, Removed: true})
	return nil
}

// ApplyRemote stores a pulled value without marking key dirty.
func (s *Storage) ApplyRemote(ctx context.Context, key string, value []byte, at time.Time) error {
	s.mu.Lock()
	s.values[key] = clone(value)
	meta := s.meta[key]
	meta.Applied(at)
	s.meta[key] = meta
	s.mu.Unlock()

	s.Emit(storage.Change{Key: key})
	return nil
}

// GetRecordMeta returns bookkeeping for key.
func (s *Storage) GetRecordMeta(ctx context.Context, key string) (storage.RecordMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.meta[key], nil
}

// MarkPushed advances PushedSeq for key.
func (s *Storage) MarkPushed(ctx context.Context, key string, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.meta[key]
	if !ok {
		return nil
	}
	meta.Pushed(seq)
	s.meta[key] = meta
	return nil
}

// SaveCursor stores the pull cursor of scope.
func (s *Storage) SaveCursor(ctx context.Context, scope, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[scope] = cursor
	return nil
}

// GetCursor returns the pull cursor of scope.
func (s *Storage) GetCursor(ctx context.Context, scope string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cursors[scope], nil
}

// Quarantine keeps rec, replacing an earlier one for the same key.
func (s *Storage) Quarantine(ctx context.Context, rec storage.QuarantinedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Value = clone(rec.Value)
	s.quarantine[rec.Key] = rec
	return nil
}

// ListQuarantined returns quarantined records ordered by key.
func (s *Storage) ListQuarantined(ctx context.Context) ([]storage.QuarantinedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]storage.QuarantinedRecord, 0, len(s.quarantine))
	for _, rec := range s.quarantine {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key < records[j].Key
	})
	return records, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
