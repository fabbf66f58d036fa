package crdt

import (
	"sync"

	"github.com/iudanet/petalsync/internal/models"
)

// LWWMap хранит по одной записи на ключ синхронизации и разрешает конфликты
// по правилу Last-Write-Wins: значение целиком заменяется более поздней записью.
// Слияния по полям нет.
type LWWMap struct {
	records map[models.SyncKey]*models.SyncRecord
	mu      sync.RWMutex
}

// NewLWWMap creates an empty map.
func NewLWWMap() *LWWMap {
	return &LWWMap{
		records: make(map[models.SyncKey]*models.SyncRecord),
	}
}

// NewLWWMapFrom seeds a map from a record set.
func NewLWWMapFrom(set models.RecordSet) *LWWMap {
	m := NewLWWMap()
	for key, rec := range set {
		r := rec
		r.Key = key
		m.Put(&r)
	}
	return m
}

// Put stores rec if no record exists for its key or rec is not older than the stored one.
// Returns true if the map changed.
func (m *LWWMap) Put(rec *models.SyncRecord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.put(rec)
}

func (m *LWWMap) put(rec *models.SyncRecord) bool {
	existing, ok := m.records[rec.Key]
	if ok && !rec.IsNewerThan(existing) {
		return false
	}
	m.records[rec.Key] = rec.Clone()
	return true
}

// Get returns a copy of the record for key, or nil.
func (m *LWWMap) Get(key models.SyncKey) *models.SyncRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok {
		return nil
	}
	return rec.Clone()
}

// Merge folds other into m. Коммутативно и идемпотентно.
func (m *LWWMap) Merge(other *LWWMap) {
	if other == m {
		return
	}

	other.mu.RLock()
	incoming := make([]*models.SyncRecord, 0, len(other.records))
	for _, rec := range other.records {
		incoming = append(incoming, rec.Clone())
	}
	other.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range incoming {
		m.put(rec)
	}
}

// Records returns a copy of every stored record.
func (m *LWWMap) Records() models.RecordSet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(models.RecordSet, len(m.records))
	for key, rec := range m.records {
		set[key] = *rec.Clone()
	}
	return set
}

// Len returns the number of keys held.
func (m *LWWMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}
