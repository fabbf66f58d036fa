package notifier

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/petalsync/internal/models"
)

// EventType имя события приложения
type EventType string

const (
	// EventAdminDataUpdated публикуется после применения pull, Update содержит записи
	EventAdminDataUpdated EventType = "admin-data-updated"
	// EventMessageUpdated публикуется когда изменились сообщения, без данных
	EventMessageUpdated EventType = "message-updated"
)

// Event событие шины
type Event struct {
	Update models.RecordSet
	Type   EventType
}

// Handler обработчик событий шины
type Handler func(Event)

type subscription struct {
	handler Handler
	typ     EventType
}

// Bus is the explicit application event bus owned by the sync orchestrator.
type Bus struct {
	logger *slog.Logger
	subs   map[uint64]subscription
	next   uint64
	mu     sync.Mutex
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[uint64]subscription),
	}
}

// Subscribe registers h for events of type typ.
func (b *Bus) Subscribe(typ EventType, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = subscription{typ: typ, handler: h}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev synchronously to the handlers subscribed to its type.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.typ == ev.Type {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		b.deliver(h, ev)
	}
}

func (b *Bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked", "event", ev.Type, "panic", fmt.Sprint(r))
		}
	}()
	h(ev)
}
