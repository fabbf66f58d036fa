package sync

import (
	stdsync "sync"
	"time"

	"github.com/iudanet/petalsync/internal/client/transport"
)

// State состояние последней синхронизации
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateOK      State = "ok"
	StateFailed  State = "failed"
)

// Status is the queryable outcome of the most recent sync attempt.
type Status struct {
	LastAttempt         time.Time      `json:"last_attempt"`
	LastSuccess         time.Time      `json:"last_success"`
	State               State          `json:"state"`
	LastError           string         `json:"last_error,omitempty"`
	Cursor              string         `json:"cursor,omitempty"`
	Transport           transport.Kind `json:"transport"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	Polling             bool           `json:"polling"`
}

// Offline reports whether the transport failed several times in a row.
func (s Status) Offline() bool {
	return s.ConsecutiveFailures >= 2
}

// statusTracker хранит Status под мьютексом
type statusTracker struct {
	status Status
	mu     stdsync.RWMutex
}

func (t *statusTracker) begin(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.State = StateSyncing
	t.status.LastAttempt = at
}

// finish records the result. On failure the previous cursor and last success stay.
func (t *statusTracker) finish(at time.Time, cursor string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.status.State = StateFailed
		t.status.LastError = err.Error()
		t.status.ConsecutiveFailures++
		return
	}

	t.status.State = StateOK
	t.status.LastError = ""
	t.status.LastSuccess = at
	t.status.ConsecutiveFailures = 0
	if cursor != "" {
		t.status.Cursor = cursor
	}
}

func (t *statusTracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
