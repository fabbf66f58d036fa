package models

import "time"

// Sender автор сообщения в переписке по заказу
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// PaymentRequestStatus состояние запроса на оплату
type PaymentRequestStatus string

const (
	PaymentRequestPending            PaymentRequestStatus = "pending"
	PaymentRequestPendingWithReceipt PaymentRequestStatus = "pending-with-receipt"
	PaymentRequestConfirmed          PaymentRequestStatus = "confirmed"
)

// rank задает порядок состояний; переходы допустимы только вперед
func (s PaymentRequestStatus) rank() int {
	switch s {
	case PaymentRequestPending:
		return 1
	case PaymentRequestPendingWithReceipt:
		return 2
	case PaymentRequestConfirmed:
		return 3
	}
	return 0
}

// IsValid reports whether s is a known payment request state.
func (s PaymentRequestStatus) IsValid() bool {
	return s.rank() > 0
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle monotonic.
// Staying in pending-with-receipt is allowed (the user may replace the receipt).
// An unknown current state cannot move anywhere.
func (s PaymentRequestStatus) CanAdvanceTo(next PaymentRequestStatus) bool {
	if !s.IsValid() || !next.IsValid() || s == PaymentRequestConfirmed {
		return false
	}
	if s == PaymentRequestPendingWithReceipt && next == PaymentRequestPendingWithReceipt {
		return true
	}
	return next.rank() > s.rank()
}

// Message сообщение в переписке по заказу.
// Если PaymentRequest не nil, сообщение является запросом на оплату.
type Message struct {
	Timestamp      time.Time       `json:"timestamp"`
	PaymentRequest *PaymentRequest `json:"payment_request,omitempty"`
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id"`
	Sender         Sender          `json:"sender"`
	Body           string          `json:"body"`
	ReadByUser     bool            `json:"read_by_user"`
	ReadByAdmin    bool            `json:"read_by_admin"`
}

// IsPaymentRequest reports whether the message carries a payment request.
func (m *Message) IsPaymentRequest() bool {
	return m.PaymentRequest != nil
}

// PaymentRequest запрос на оплату, выставленный администратором
type PaymentRequest struct {
	ReceiptAt     *time.Time           `json:"receipt_at,omitempty"`
	ConfirmedAt   *time.Time           `json:"confirmed_at,omitempty"`
	Status        PaymentRequestStatus `json:"status"`
	Receipt       string               `json:"receipt,omitempty"`        // Receipt изображение чека в base64
	ReceiptDigest string               `json:"receipt_digest,omitempty"` // ReceiptDigest BLAKE2b-256 от декодированного чека (hex)
	Amount        float64              `json:"amount"`
}
