package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/crdt"
	"github.com/iudanet/petalsync/internal/models"
)

// InboxPrefix префикс ключа, под которым клиент оставляет записи для другой стороны
const InboxPrefix = "sync-inbox:"

// InboxKey returns the staging key read by role.
func InboxKey(role models.Role) string {
	return InboxPrefix + string(role)
}

// inboxPayload содержимое staging ключа
type inboxPayload struct {
	Timestamp time.Time        `json:"timestamp"`
	Records   models.RecordSet `json:"records"`
	From      models.Role      `json:"from"`
}

// SharedStore moves records through a key-value store both clients can reach.
//
// Push writes every record under its own key and merges the records into the peer's
// inbox. Pull takes the client's own inbox and deletes it, so each write is delivered
// at most once. Notifications stay local: every client keeps its own feed.
type SharedStore struct {
	kv          storage.KVStore
	logger      *slog.Logger
	now         func() time.Time
	wake        chan struct{}
	unsubscribe func()
	role        models.Role
	mu          sync.Mutex
}

var (
	_ Transport = (*SharedStore)(nil)
	_ Waker     = (*SharedStore)(nil)
	_ KeyFilter = (*SharedStore)(nil)
)

// NewSharedStore creates the shared-store transport for role.
func NewSharedStore(kv storage.KVStore, role models.Role, logger *slog.Logger) (*SharedStore, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid client role %q", role)
	}

	t := &SharedStore{
		kv:     kv,
		role:   role,
		logger: logger,
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}

	// Сигнал изменения хранилища будит планировщик, когда другая сторона пишет в наш inbox
	inbox := InboxKey(role)
	t.unsubscribe = kv.OnChange(func(c storage.Change) {
		if c.Key != inbox || c.Removed {
			return
		}
		select {
		case t.wake <- struct{}{}:
		default:
		}
	})

	return t, nil
}

// Kind implements Transport
func (t *SharedStore) Kind() Kind {
	return KindSharedStore
}

// Wake fires when the peer leaves records in this client's inbox
func (t *SharedStore) Wake() <-chan struct{} {
	return t.wake
}

// Close stops listening to store changes
func (t *SharedStore) Close() {
	t.unsubscribe()
}

// Carries implements KeyFilter: notifications stay local to each client.
func (t *SharedStore) Carries(key models.SyncKey) bool {
	return key != models.KeyNotifications
}

// Push writes records to the shared store and stages them for the peer
func (t *SharedStore) Push(ctx context.Context, records models.RecordSet) (*Ack, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	staged := make(models.RecordSet, len(records))
	ack := &Ack{Cursor: now.Format(time.RFC3339Nano)}

	for _, key := range records.Keys() {
		if !t.Carries(key) {
			continue
		}
		rec := records[key]

		if err := t.writeIfChanged(ctx, key.String(), rec.Value); err != nil {
			return nil, fmt.Errorf("failed to write %s to shared store: %w", key, err)
		}

		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = now
		}
		staged[key] = rec
		ack.Accepted = append(ack.Accepted, key)
	}

	if len(staged) == 0 {
		return ack, nil
	}

	// Сливаем с тем, что другая сторона еще не забрала
	peerInbox := InboxKey(t.role.Peer())
	pending, err := t.readInbox(ctx, peerInbox)
	if err != nil {
		t.logger.Warn("Discarding unreadable peer inbox", "key", peerInbox, "error", err)
		pending = nil
	}

	merged := crdt.NewLWWMap()
	if pending != nil {
		merged = crdt.NewLWWMapFrom(pending.Records)
	}
	merged.Merge(crdt.NewLWWMapFrom(staged))

	payload := inboxPayload{
		From:      t.role,
		Timestamp: now,
		Records:   merged.Records(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inbox payload: %w", err)
	}
	if err := t.kv.Set(ctx, peerInbox, data); err != nil {
		return nil, fmt.Errorf("failed to stage records for %s: %w", t.role.Peer(), err)
	}

	t.logger.Debug("Staged records for peer", "peer", t.role.Peer(), "count", len(staged))
	return ack, nil
}

// Pull takes the pending payload from this client's inbox and deletes it
func (t *SharedStore) Pull(ctx context.Context, since string) (*PullResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	inbox := InboxKey(t.role)
	payload, err := t.readInbox(ctx, inbox)
	if err != nil {
		// Испорченный inbox не должен блокировать следующие доставки
		if rmErr := t.kv.Remove(ctx, inbox); rmErr != nil {
			t.logger.Warn("Failed to remove unreadable inbox", "key", inbox, "error", rmErr)
		}
		return nil, err
	}
	if payload == nil {
		return &PullResult{Records: models.RecordSet{}, Cursor: since}, nil
	}

	if err := t.kv.Remove(ctx, inbox); err != nil {
		return nil, fmt.Errorf("failed to clear inbox: %w", err)
	}

	records := make(models.RecordSet, len(payload.Records))
	for key, rec := range payload.Records {
		if !key.IsValid() || !t.Carries(key) {
			continue
		}
		rec.Key = key
		records[key] = rec
	}

	return &PullResult{
		Records: records,
		Cursor:  payload.Timestamp.Format(time.RFC3339Nano),
	}, nil
}

func (t *SharedStore) readInbox(ctx context.Context, key string) (*inboxPayload, error) {
	data, err := t.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var payload inboxPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("malformed inbox payload: %w", err)
	}
	return &payload, nil
}

// writeIfChanged skips identical values so that pushing into the client's own store
// does not register a fresh local write.
func (t *SharedStore) writeIfChanged(ctx context.Context, key string, value []byte) error {
	current, err := t.kv.Get(ctx, key)
	if err == nil && string(current) == string(value) {
		return nil
	}
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return err
	}
	return t.kv.Set(ctx, key, value)
}
