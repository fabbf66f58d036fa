package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/petalsync/internal/client/notifier"
	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/models"
)

// ErrOrderNotFound заказ для запроса на оплату не найден
var ErrOrderNotFound = errors.New("order not found")

// Service applies payment-request transitions to the messages, orders and notifications
// stored locally. The sync orchestrator pushes the result on its next cycle.
//
// Misuse (unknown request, confirming twice) changes nothing: it is logged and
// reported with a sentinel error.
type Service struct {
	store  *storage.Adapter
	bus    *notifier.Bus
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a payment service. bus may be nil.
func NewService(store *storage.Adapter, bus *notifier.Bus, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// Request posts an administrator payment request for orderID into the order thread.
func (s *Service) Request(ctx context.Context, orderID string, amount float64, body string) (*models.Message, error) {
	if _, _, ok := s.findOrder(ctx, orderID); !ok {
		s.logger.Warn("Payment requested for unknown order, ignoring", "order_id", orderID)
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	pr, err := NewRequest(amount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	msg := models.Message{
		ID:             uuid.New().String(),
		OrderID:        orderID,
		Sender:         models.SenderAdmin,
		Body:           body,
		Timestamp:      now,
		PaymentRequest: pr,
		ReadByAdmin:    true,
	}

	if err := storage.AppendList(ctx, s.store, models.KeyMessages, msg); err != nil {
		return nil, fmt.Errorf("failed to save payment request: %w", err)
	}

	s.notify(ctx, models.NewNotification(
		models.NotificationPaymentRequested,
		"Payment requested",
		fmt.Sprintf("Please pay %.2f for order %s", amount, orderID),
		"/orders/"+orderID,
		now,
	))
	s.publishMessageUpdated()

	s.logger.Info("Payment request created", "message_id", msg.ID, "order_id", orderID, "amount", amount)
	return &msg, nil
}

// AttachReceipt attaches the user's receipt to the payment request in messageID.
func (s *Service) AttachReceipt(ctx context.Context, messageID string, receipt []byte) (*models.Message, error) {
	messages := storage.LoadList[models.Message](ctx, s.store, models.KeyMessages)

	idx, err := s.findRequest(messages, messageID)
	if err != nil {
		return nil, err
	}

	digest := ReceiptDigest(receipt)
	for i := range messages {
		m := &messages[i]
		if i != idx && m.IsPaymentRequest() && len(receipt) > 0 && m.PaymentRequest.ReceiptDigest == digest {
			s.logger.Warn("Receipt already used for another payment request",
				"message_id", messageID, "other_message_id", m.ID)
			return nil, ErrDuplicateReceipt
		}
	}

	msg := &messages[idx]
	changed, err := AttachReceipt(msg.PaymentRequest, receipt, s.now())
	if err != nil {
		s.logger.Warn("Receipt not attached", "message_id", messageID, "error", err)
		return nil, err
	}
	if !changed {
		return msg, nil
	}
	msg.ReadByAdmin = false

	if err := storage.SaveList(ctx, s.store, models.KeyMessages, messages); err != nil {
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}
	s.publishMessageUpdated()

	s.logger.Info("Receipt attached", "message_id", messageID, "digest", msg.PaymentRequest.ReceiptDigest)
	return msg, nil
}

// Confirm confirms the payment request in messageID, marks the order paid and notifies the user.
func (s *Service) Confirm(ctx context.Context, messageID string) (*models.Message, error) {
	messages := storage.LoadList[models.Message](ctx, s.store, models.KeyMessages)

	idx, err := s.findRequest(messages, messageID)
	if err != nil {
		return nil, err
	}

	msg := &messages[idx]
	now := s.now()
	if err := Confirm(msg.PaymentRequest, now); err != nil {
		s.logger.Warn("Payment request not confirmed", "message_id", messageID, "error", err)
		return nil, err
	}
	msg.ReadByUser = false

	if err := storage.SaveList(ctx, s.store, models.KeyMessages, messages); err != nil {
		return nil, fmt.Errorf("failed to save confirmation: %w", err)
	}

	if err := s.markPaid(ctx, msg.OrderID, now); err != nil {
		s.logger.Warn("Payment confirmed but order not updated", "order_id", msg.OrderID, "error", err)
	}

	s.notify(ctx, models.NewNotification(
		models.NotificationPaymentConfirmed,
		"Payment confirmed",
		fmt.Sprintf("Your payment of %.2f for order %s was confirmed", msg.PaymentRequest.Amount, msg.OrderID),
		"/orders/"+msg.OrderID,
		now,
	))
	s.publishMessageUpdated()

	s.logger.Info("Payment confirmed", "message_id", messageID, "order_id", msg.OrderID)
	return msg, nil
}

// Pending returns payment requests that are not confirmed yet, oldest first.
func (s *Service) Pending(ctx context.Context) []models.Message {
	messages := storage.LoadList[models.Message](ctx, s.store, models.KeyMessages)

	pending := make([]models.Message, 0)
	for _, m := range messages {
		if m.IsPaymentRequest() && m.PaymentRequest.Status != models.PaymentRequestConfirmed {
			pending = append(pending, m)
		}
	}
	return pending
}

func (s *Service) findRequest(messages []models.Message, messageID string) (int, error) {
	for i := range messages {
		if messages[i].ID != messageID {
			continue
		}
		if !messages[i].IsPaymentRequest() {
			break
		}
		return i, nil
	}
	s.logger.Warn("Payment request not found, ignoring", "message_id", messageID)
	return -1, fmt.Errorf("%w: %s", ErrPaymentRequestNotFound, messageID)
}

// findOrder searches orders, then requests.
func (s *Service) findOrder(ctx context.Context, orderID string) (models.SyncKey, []models.Order, bool) {
	for _, key := range []models.SyncKey{models.KeyOrders, models.KeyRequests} {
		orders := storage.LoadList[models.Order](ctx, s.store, key)
		for _, o := range orders {
			if o.ID == orderID {
				return key, orders, true
			}
		}
	}
	return "", nil, false
}

func (s *Service) markPaid(ctx context.Context, orderID string, at time.Time) error {
	key, orders, ok := s.findOrder(ctx, orderID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	for i := range orders {
		if orders[i].ID == orderID {
			orders[i].PaymentStatus = models.PaymentPaid
			orders[i].UpdatedAt = at
		}
	}
	return storage.SaveList(ctx, s.store, key, orders)
}

func (s *Service) notify(ctx context.Context, n models.Notification) {
	if err := storage.AppendList(ctx, s.store, models.KeyNotifications, n); err != nil {
		s.logger.Warn("Failed to save notification", "type", n.Type, "error", err)
	}
}

func (s *Service) publishMessageUpdated() {
	if s.bus != nil {
		s.bus.Publish(notifier.Event{Type: notifier.EventMessageUpdated})
	}
}
