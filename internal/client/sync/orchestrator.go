// Package sync is the composition root of client synchronization.
//
// Orchestrator pushes local writes through the selected transport, pulls the
// other side's writes on a schedule, validates and applies them to the local
// store, and publishes what changed through the notifier.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/petalsync/internal/client/notifier"
	"github.com/iudanet/petalsync/internal/client/scheduler"
	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/client/transport"
	"github.com/iudanet/petalsync/internal/models"
)

// ErrClosed возвращается после Close
var ErrClosed = errors.New("sync orchestrator is closed")

// Config параметры оркестратора
type Config struct {
	Keys         []models.SyncKey // ключи, участвующие в синхронизации; пусто - все
	PollInterval time.Duration
}

// Result итог одного цикла синхронизации
type Result struct {
	Cursor      string
	Pushed      int // количество отправленных ключей
	Pulled      int // количество полученных записей
	Applied     int // количество примененных записей
	Skipped     int // пропущены: локальная запись новее или значение совпадает
	Quarantined int // отклонены проверкой схемы
	// Rejected ключи, которые другая сторона не приняла; остаются в очереди на отправку
	Rejected []models.SyncKey
}

// Orchestrator wires the local store, the transport, the poll scheduler and the notifier.
type Orchestrator struct {
	store     storage.Store
	transport transport.Transport
	notifier  *notifier.Notifier
	bus       *notifier.Bus
	poller    *scheduler.Poller
	logger    *slog.Logger
	now       func() time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	keys      []models.SyncKey
	status    statusTracker
	interval  time.Duration
	cycleMu   stdsync.Mutex
	closed    atomic.Bool
}

// New creates an orchestrator. Polling does not begin until Start.
func New(cfg Config, store storage.Store, tr transport.Transport, logger *slog.Logger) *Orchestrator {
	keys := cfg.Keys
	if len(keys) == 0 {
		keys = models.AllKeys()
	}

	bus := notifier.NewBus(logger)
	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		store:     store,
		transport: tr,
		bus:       bus,
		notifier:  notifier.New(bus, logger),
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		keys:      keys,
		interval:  cfg.PollInterval,
	}
	o.poller = scheduler.New(o.tick, logger)
	o.status.status = Status{State: StateIdle, Transport: tr.Kind()}

	return o
}

// Bus returns the application event bus.
func (o *Orchestrator) Bus() *notifier.Bus {
	return o.bus
}

// OnUpdate registers cb for every applied pull. See notifier.Notifier.OnUpdate.
func (o *Orchestrator) OnUpdate(cb notifier.Callback) (unsubscribe func()) {
	return o.notifier.OnUpdate(cb)
}

// Keys returns the configured sync keys.
func (o *Orchestrator) Keys() []models.SyncKey {
	keys := make([]models.SyncKey, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Start begins periodic synchronization with an immediate first cycle.
// Calling Start again replaces the running schedule.
func (o *Orchestrator) Start(interval time.Duration) error {
	if o.closed.Load() {
		return ErrClosed
	}
	if interval <= 0 {
		interval = o.interval
	}

	var wake <-chan struct{}
	if w, ok := o.transport.(transport.Waker); ok {
		wake = w.Wake()
	}

	o.poller.Start(o.ctx, interval, wake)
	return nil
}

// Stop ends periodic synchronization. A cycle already running completes and is applied.
func (o *Orchestrator) Stop() {
	o.poller.Stop()
}

// Close stops polling, cancels in-flight transport calls and discards their results.
func (o *Orchestrator) Close() {
	if !o.closed.CompareAndSwap(false, true) {
		return
	}

	o.poller.Stop()
	o.cancel()
	o.poller.Wait()

	if c, ok := o.transport.(interface{ Close() }); ok {
		c.Close()
	}
	o.logger.Info("Sync orchestrator closed")
}

// Status returns the last sync status.
func (o *Orchestrator) Status() Status {
	s := o.status.snapshot()
	s.Polling = o.poller.Running()
	return s
}

// SyncNow runs one cycle immediately: push local writes, then pull and apply.
// The error is also recorded in Status.
func (o *Orchestrator) SyncNow(ctx context.Context) (*Result, error) {
	if o.closed.Load() {
		return nil, ErrClosed
	}

	ctx, cancel := o.linked(ctx)
	defer cancel()

	return o.cycle(ctx)
}

// tick is the scheduler callback. Failures are logged and recorded, never propagated.
func (o *Orchestrator) tick(ctx context.Context) {
	if _, err := o.cycle(ctx); err != nil {
		o.logger.Warn("Scheduled sync failed, keeping local state", "error", err)
	}
}

func (o *Orchestrator) cycle(ctx context.Context) (*Result, error) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	o.status.begin(o.now())
	result, err := o.runCycle(ctx)
	cursor := ""
	if result != nil {
		cursor = result.Cursor
	}
	o.status.finish(o.now(), cursor, err)
	if err != nil {
		return result, err
	}

	o.logger.Debug("Sync cycle completed",
		"transport", o.transport.Kind(),
		"pushed", result.Pushed,
		"pulled", result.Pulled,
		"applied", result.Applied,
		"skipped", result.Skipped,
		"quarantined", result.Quarantined)
	return result, nil
}

func (o *Orchestrator) runCycle(ctx context.Context) (*Result, error) {
	result := &Result{}

	pushed, rejected, err := o.push(ctx)
	result.Pushed = pushed
	result.Rejected = rejected
	if err != nil {
		return result, err
	}

	if err := o.pull(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// PendingCount returns the number of configured keys with local writes not yet pushed.
func (o *Orchestrator) PendingCount(ctx context.Context) (int, error) {
	dirty, _, err := o.dirtyRecords(ctx)
	if err != nil {
		return 0, err
	}
	return len(dirty), nil
}

// dirtyRecords returns unpushed local writes with the write number each value was read at.
func (o *Orchestrator) dirtyRecords(ctx context.Context) (models.RecordSet, map[models.SyncKey]uint64, error) {
	records := make(models.RecordSet)
	seqs := make(map[models.SyncKey]uint64)

	for _, key := range o.keys {
		if !o.carried(key) {
			continue
		}

		meta, err := o.store.GetRecordMeta(ctx, key.String())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read sync metadata for %s: %w", key, err)
		}
		if !meta.Dirty() {
			continue
		}

		value, err := o.store.Get(ctx, key.String())
		if err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				continue
			}
			return nil, nil, fmt.Errorf("failed to read %s: %w", key, err)
		}

		compact, err := storage.Compact(value)
		if err != nil {
			o.logger.Warn("Local value is not valid JSON, not pushing it", "key", key, "error", err)
			continue
		}

		records[key] = models.SyncRecord{
			Key:       key,
			Value:     compact,
			UpdatedAt: meta.UpdatedAt,
		}
		seqs[key] = meta.Seq
	}

	return records, seqs, nil
}

// push sends dirty keys and marks those the other side accepted.
// Returns the number of accepted keys and the rejected ones.
func (o *Orchestrator) push(ctx context.Context) (int, []models.SyncKey, error) {
	dirty, seqs, err := o.dirtyRecords(ctx)
	if err != nil {
		return 0, nil, err
	}
	if len(dirty) == 0 {
		return 0, nil, nil
	}

	ack, err := o.transport.Push(ctx, dirty)
	if err != nil {
		return 0, nil, fmt.Errorf("push failed: %w", err)
	}

	accepted := make(map[models.SyncKey]bool, len(ack.Accepted))
	for _, key := range ack.Accepted {
		accepted[key] = true
	}

	var pushed, rejected []models.SyncKey
	for _, key := range dirty.Keys() {
		if !accepted[key] {
			rejected = append(rejected, key)
			continue
		}
		// Запись, сделанная во время push, останется грязной: Seq > PushedSeq
		if err := o.store.MarkPushed(ctx, key.String(), seqs[key]); err != nil {
			o.logger.Warn("Failed to mark key pushed", "key", key, "error", err)
		}
		pushed = append(pushed, key)
	}

	if len(rejected) > 0 {
		o.logger.Warn("Keys not accepted by the other side, will retry", "keys", rejected)
	}
	if len(pushed) > 0 {
		o.logger.Info("Pushed local changes", "keys", pushed)
	}
	return len(pushed), rejected, nil
}

func (o *Orchestrator) pull(ctx context.Context, result *Result) error {
	scope := o.CursorScope()
	since, err := o.store.GetCursor(ctx, scope)
	if err != nil {
		o.logger.Warn("Failed to read sync cursor, pulling from start", "error", err)
		since = ""
	}

	pulled, err := o.transport.Pull(ctx, since)
	if errors.Is(err, transport.ErrCursorRejected) && since != "" {
		o.logger.Warn("Sync cursor rejected, pulling from start", "cursor", since, "error", err)
		since = ""
		if err := o.store.SaveCursor(ctx, scope, ""); err != nil {
			o.logger.Warn("Failed to reset sync cursor", "error", err)
		}
		pulled, err = o.transport.Pull(ctx, since)
	}
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	result.Cursor = pulled.Cursor
	result.Pulled = len(pulled.Records)

	applied, err := o.apply(ctx, pulled.Records, result)
	if err != nil {
		return err
	}

	if pulled.Cursor != "" && pulled.Cursor != since {
		if err := o.store.SaveCursor(ctx, scope, pulled.Cursor); err != nil {
			o.logger.Warn("Failed to save sync cursor", "error", err)
		}
	}

	if len(applied) > 0 {
		o.logger.Info("Applied pulled changes", "keys", applied.Keys())
		o.notifier.Notify(applied)
	}
	return nil
}

// apply writes pulled records to the local store and returns those that changed it.
func (o *Orchestrator) apply(ctx context.Context, records models.RecordSet, result *Result) (models.RecordSet, error) {
	applied := make(models.RecordSet)

	for _, key := range records.Keys() {
		// После Close поздние ответы не применяются
		if o.ctx.Err() != nil {
			return nil, ErrClosed
		}
		if !o.configured(key) {
			continue
		}

		rec := records[key]
		out, err := o.applyRecord(ctx, rec)
		if err != nil {
			return applied, err
		}
		switch out {
		case outcomeApplied:
			result.Applied++
			applied[key] = rec
		case outcomeQuarantined:
			result.Quarantined++
		default:
			result.Skipped++
		}
	}

	return applied, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeApplied
	outcomeQuarantined
)

func (o *Orchestrator) applyRecord(ctx context.Context, rec models.SyncRecord) (outcome, error) {
	key := rec.Key.String()

	value, err := storage.Compact(rec.Value)
	if err == nil {
		err = models.ValidateRecord(rec.Key, value)
	}
	if err != nil {
		o.logger.Warn("Quarantining pulled record", "key", key, "error", err)
		qErr := o.store.Quarantine(ctx, storage.QuarantinedRecord{
			Key:        key,
			Reason:     err.Error(),
			Value:      rec.Value,
			ReceivedAt: o.now(),
		})
		if qErr != nil {
			o.logger.Error("Failed to quarantine record", "key", key, "error", qErr)
		}
		return outcomeQuarantined, nil
	}

	meta, err := o.store.GetRecordMeta(ctx, key)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("failed to read sync metadata for %s: %w", key, err)
	}
	if meta.Dirty() {
		o.logger.Debug("Keeping newer local write", "key", key)
		return outcomeSkipped, nil
	}

	current, err := o.store.Get(ctx, key)
	if err == nil && bytes.Equal(current, value) {
		return outcomeSkipped, nil
	}

	at := rec.UpdatedAt
	if at.IsZero() {
		at = o.now()
	}
	if err := o.store.ApplyRemote(ctx, key, value, at); err != nil {
		return outcomeSkipped, fmt.Errorf("failed to apply %s: %w", key, err)
	}
	return outcomeApplied, nil
}

// CursorScope returns the scope the pull cursor of the current transport is stored under.
func (o *Orchestrator) CursorScope() string {
	return o.transport.Kind().String()
}

// carried reports whether the transport moves key at all.
func (o *Orchestrator) carried(key models.SyncKey) bool {
	if f, ok := o.transport.(transport.KeyFilter); ok {
		return f.Carries(key)
	}
	return true
}

func (o *Orchestrator) configured(key models.SyncKey) bool {
	for _, k := range o.keys {
		if k == key {
			return true
		}
	}
	return false
}

// linked returns a context canceled when either ctx or the orchestrator ends.
func (o *Orchestrator) linked(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(o.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
