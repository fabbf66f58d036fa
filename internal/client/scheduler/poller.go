// Package scheduler runs the periodic pull of the sync transport.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval используется, если интервал не задан
const DefaultInterval = 30 * time.Second

// PullFunc выполняет один pull и применяет результат
type PullFunc func(ctx context.Context)

// Poller owns a single cancellable repeating task invoking PullFunc.
//
// Start issues an immediate pull and then one per interval. A tick arriving while the
// previous pull is still running is skipped, so pulls never overlap.
type Poller struct {
	pull     PullFunc
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
	inFlight atomic.Bool
	skipped  atomic.Int64
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// New creates a stopped poller.
func New(pull PullFunc, logger *slog.Logger) *Poller {
	return &Poller{
		pull:   pull,
		logger: logger,
	}
}

// Start begins polling. ctx is handed to every pull and also ends the schedule when done.
// wake may be nil; a receive on it triggers an extra pull. A second Start replaces the
// running schedule instead of adding another one.
func (p *Poller) Start(ctx context.Context, interval time.Duration, wake <-chan struct{}) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop = stop
	p.done = done

	p.logger.Info("Starting sync polling", "interval", interval)

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			p.trigger(ctx)
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
			case <-wake:
			}
		}
	}()
}

// Stop cancels the schedule. A pull already running is not interrupted.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopLocked() {
		p.logger.Info("Stopped sync polling")
	}
}

// Running reports whether a schedule is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Skipped returns the number of ticks dropped because a pull was still running.
func (p *Poller) Skipped() int64 {
	return p.skipped.Load()
}

// Wait blocks until pulls already started have returned.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) stopLocked() bool {
	if p.stop == nil {
		return false
	}
	close(p.stop)
	<-p.done
	p.stop = nil
	p.done = nil
	return true
}

func (p *Poller) trigger(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		p.logger.Debug("Skipping tick, previous pull still running")
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)
		p.pull(ctx)
	}()
}
