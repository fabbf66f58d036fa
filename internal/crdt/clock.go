package crdt

import "sync"

// LamportClock логические часы Лампорта. Сервер синхронизации использует их
// как счетчик ревизий: каждая принятая запись получает следующую ревизию,
// а курсор клиента - это последняя увиденная ревизия.
type LamportClock struct {
	counter int64
	mu      sync.Mutex
}

// NewLamportClock creates a clock starting at revision 0.
func NewLamportClock() *LamportClock {
	return &LamportClock{}
}

// Tick increments the counter and returns the new revision.
func (lc *LamportClock) Tick() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter++
	return lc.counter
}

// Current returns the last issued revision.
func (lc *LamportClock) Current() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.counter
}

// Restore sets the counter after a restart, e.g. from the highest persisted revision.
// A lower value than the current counter is ignored so revisions never go backwards.
func (lc *LamportClock) Restore(revision int64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if revision > lc.counter {
		lc.counter = revision
	}
}
