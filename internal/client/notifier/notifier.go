// Package notifier fans pulled updates out to the rest of the application.
package notifier

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/petalsync/internal/models"
)

// Callback получает набор записей, примененных последним pull
type Callback func(update models.RecordSet)

// Notifier рассылает обновления подписчикам и дублирует их в шину событий приложения.
// Паника одного подписчика не мешает остальным.
type Notifier struct {
	bus    *Bus
	logger *slog.Logger
	subs   map[uint64]Callback
	next   uint64
	mu     sync.Mutex
}

// New creates a notifier re-emitting updates on bus. bus may be nil.
func New(bus *Bus, logger *slog.Logger) *Notifier {
	return &Notifier{
		bus:    bus,
		logger: logger,
		subs:   make(map[uint64]Callback),
	}
}

// OnUpdate registers cb and returns a function removing it.
// Calling the returned function more than once is harmless.
func (n *Notifier) OnUpdate(cb Callback) (unsubscribe func()) {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = cb
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered callbacks.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Notify delivers update to every subscriber, then publishes
// EventAdminDataUpdated and, when messages changed, EventMessageUpdated.
func (n *Notifier) Notify(update models.RecordSet) {
	if len(update) == 0 {
		return
	}

	n.mu.Lock()
	callbacks := make([]Callback, 0, len(n.subs))
	for _, cb := range n.subs {
		callbacks = append(callbacks, cb)
	}
	n.mu.Unlock()

	for _, cb := range callbacks {
		n.invoke(cb, update)
	}

	if n.bus == nil {
		return
	}
	n.bus.Publish(Event{Type: EventAdminDataUpdated, Update: update})
	if _, ok := update[models.KeyMessages]; ok {
		n.bus.Publish(Event{Type: EventMessageUpdated})
	}
}

func (n *Notifier) invoke(cb Callback, update models.RecordSet) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Update subscriber panicked", "panic", fmt.Sprint(r))
		}
	}()
	cb(update)
}
