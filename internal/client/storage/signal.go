package storage

import "sync"

// Signal fans a Change out to subscribers. Backends embed it to implement KVStore.OnChange.
type Signal struct {
	subs map[int]func(Change)
	next int
	mu   sync.RWMutex
}

// OnChange subscribes fn and returns the unsubscribe function.
func (s *Signal) OnChange(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]func(Change))
	}
	id := s.next
	s.next++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Emit delivers c to every subscriber outside the lock, so a subscriber may write to the store.
func (s *Signal) Emit(c Change) {
	s.mu.RLock()
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(c)
	}
}
