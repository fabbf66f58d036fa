// Package shop holds the administrator and storefront actions on synced collections:
// orders and requests, message threads and the notification feed.
// Every action writes through the local store; the sync orchestrator moves it.
package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/petalsync/internal/client/notifier"
	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/lifecycle"
	"github.com/iudanet/petalsync/internal/models"
)

var (
	// ErrOrderNotFound заказ или заявка не найдены
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStatus неизвестный статус
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrEmptyMessage пустое сообщение
	ErrEmptyMessage = errors.New("message body is empty")
	// ErrNotificationNotFound уведомление не найдено
	ErrNotificationNotFound = errors.New("notification not found")
)

// Service выполняет действия магазина над локальным хранилищем
type Service struct {
	store  *storage.Adapter
	bus    *notifier.Bus
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a shop service. bus may be nil.
func NewService(store *storage.Adapter, bus *notifier.Bus, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// Orders returns ordinary orders with their derived statuses.
func (s *Service) Orders(ctx context.Context) []models.OrderView {
	return lifecycle.Views(storage.LoadList[models.Order](ctx, s.store, models.KeyOrders), s.now())
}

// Requests returns bookings, special orders and customized requests with derived statuses.
func (s *Service) Requests(ctx context.Context) []models.OrderView {
	return lifecycle.Views(storage.LoadList[models.Order](ctx, s.store, models.KeyRequests), s.now())
}

// Order returns one order or request by id.
func (s *Service) Order(ctx context.Context, id string) (models.OrderView, error) {
	key, orders, idx := s.find(ctx, id)
	if key == "" {
		return models.OrderView{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return lifecycle.View(orders[idx], s.now()), nil
}

// Accept marks an order or request accepted and notifies the customer.
func (s *Service) Accept(ctx context.Context, id string) (models.OrderView, error) {
	return s.setStatus(ctx, id, models.StatusAccepted, models.NotificationOrderAccepted, "")
}

// Decline marks an order or request declined and notifies the customer.
func (s *Service) Decline(ctx context.Context, id, reason string) (models.OrderView, error) {
	return s.setStatus(ctx, id, models.StatusDeclined, models.NotificationOrderDeclined, reason)
}

// SetStatus overrides the derived status of an order or request.
func (s *Service) SetStatus(ctx context.Context, id string, status models.OrderStatus) (models.OrderView, error) {
	if !status.IsValid() {
		return models.OrderView{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.setStatus(ctx, id, status, models.NotificationOrderStatus, "")
}

func (s *Service) setStatus(ctx context.Context, id string, status models.OrderStatus, typ models.NotificationType, note string) (models.OrderView, error) {
	key, orders, idx := s.find(ctx, id)
	if key == "" {
		s.logger.Warn("Status change for unknown order, ignoring", "order_id", id, "status", status)
		return models.OrderView{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}

	now := s.now()
	orders[idx].Status = status
	orders[idx].UpdatedAt = now
	if note != "" {
		orders[idx].Notes = note
	}

	if err := storage.SaveList(ctx, s.store, key, orders); err != nil {
		return models.OrderView{}, fmt.Errorf("failed to save %s: %w", key, err)
	}

	body := fmt.Sprintf("Order %s is now %s", id, humanize(status))
	if note != "" {
		body += ": " + note
	}
	s.addNotification(ctx, models.NewNotification(typ, "Order update", body, "/orders/"+id, now))

	s.logger.Info("Order status changed", "order_id", id, "status", status)
	return lifecycle.View(orders[idx], now), nil
}

func (s *Service) find(ctx context.Context, id string) (models.SyncKey, []models.Order, int) {
	for _, key := range []models.SyncKey{models.KeyOrders, models.KeyRequests} {
		orders := storage.LoadList[models.Order](ctx, s.store, key)
		if idx := slices.IndexFunc(orders, func(o models.Order) bool { return o.ID == id }); idx >= 0 {
			return key, orders, idx
		}
	}
	return "", nil, -1
}

// Thread returns the messages of one order, oldest first.
func (s *Service) Thread(ctx context.Context, orderID string) []models.Message {
	messages := storage.LoadList[models.Message](ctx, s.store, models.KeyMessages)

	thread := make([]models.Message, 0)
	for _, m := range messages {
		if m.OrderID == orderID {
			thread = append(thread, m)
		}
	}
	slices.SortStableFunc(thread, func(a, b models.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return thread
}

// SendMessage appends a message to the thread of orderID.
func (s *Service) SendMessage(ctx context.Context, orderID string, sender models.Sender, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if sender != models.SenderAdmin && sender != models.SenderUser {
		return nil, fmt.Errorf("unknown sender %q", sender)
	}
	if key, _, _ := s.find(ctx, orderID); key == "" {
		s.logger.Warn("Message for unknown order, ignoring", "order_id", orderID)
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	now := s.now()
	msg := models.Message{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		Sender:      sender,
		Body:        body,
		Timestamp:   now,
		ReadByAdmin: sender == models.SenderAdmin,
		ReadByUser:  sender == models.SenderUser,
	}

	if err := storage.AppendList(ctx, s.store, models.KeyMessages, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	s.addNotification(ctx, models.NewNotification(
		models.NotificationMessage,
		"New message",
		preview(body),
		"/orders/"+orderID+"/messages",
		now,
	))
	s.publish(notifier.EventMessageUpdated)

	return &msg, nil
}

// MarkThreadRead marks the messages of orderID read for reader.
// Returns the number of messages that changed.
func (s *Service) MarkThreadRead(ctx context.Context, orderID string, reader models.Sender) (int, error) {
	messages := storage.LoadList[models.Message](ctx, s.store, models.KeyMessages)

	changed := 0
	for i := range messages {
		m := &messages[i]
		if m.OrderID != orderID {
			continue
		}
		switch {
		case reader == models.SenderAdmin && !m.ReadByAdmin:
			m.ReadByAdmin = true
			changed++
		case reader == models.SenderUser && !m.ReadByUser:
			m.ReadByUser = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}

	if err := storage.SaveList(ctx, s.store, models.KeyMessages, messages); err != nil {
		return 0, fmt.Errorf("failed to save messages: %w", err)
	}
	s.publish(notifier.EventMessageUpdated)
	return changed, nil
}

// Notifications returns the notification feed, newest first.
func (s *Service) Notifications(ctx context.Context, unreadOnly bool) []models.Notification {
	feed := storage.LoadList[models.Notification](ctx, s.store, models.KeyNotifications)

	result := make([]models.Notification, 0, len(feed))
	for _, n := range feed {
		if unreadOnly && n.Read {
			continue
		}
		result = append(result, n)
	}
	slices.SortStableFunc(result, func(a, b models.Notification) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return result
}

// MarkNotificationRead marks one notification read. An empty id marks all of them.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	feed := storage.LoadList[models.Notification](ctx, s.store, models.KeyNotifications)

	found := false
	for i := range feed {
		if id == "" || feed[i].ID == id {
			feed[i].Read = true
			found = true
		}
	}
	if !found && id != "" {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}

	return storage.SaveList(ctx, s.store, models.KeyNotifications, feed)
}

func (s *Service) addNotification(ctx context.Context, n models.Notification) {
	if err := storage.AppendList(ctx, s.store, models.KeyNotifications, n); err != nil {
		s.logger.Warn("Failed to save notification", "type", n.Type, "error", err)
	}
}

func (s *Service) publish(typ notifier.EventType) {
	if s.bus != nil {
		s.bus.Publish(notifier.Event{Type: typ})
	}
}

func humanize(status models.OrderStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

func preview(body string) string {
	const limit = 80
	r := []rune(body)
	if len(r) <= limit {
		return body
	}
	return string(r[:limit]) + "..."
}
