package models

import "time"

// OrderKind тип заказа или заявки
type OrderKind string

const (
	KindOrder        OrderKind = "order"
	KindBooking      OrderKind = "booking"
	KindSpecialOrder OrderKind = "special_order"
	KindCustomized   OrderKind = "customized"
)

// IsRequest reports whether the kind is one of the request kinds
// (booking, special order, customized bouquet) rather than an ordinary order.
func (k OrderKind) IsRequest() bool {
	switch k {
	case KindBooking, KindSpecialOrder, KindCustomized:
		return true
	}
	return false
}

// OrderStatus статус заказа, видимый покупателю
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusToPay          OrderStatus = "to_pay"
	StatusProcessing     OrderStatus = "processing"
	StatusReadyForPickup OrderStatus = "ready_for_pickup"
	StatusClaimed        OrderStatus = "claimed"
	StatusToReceive      OrderStatus = "to_receive"
	StatusCompleted      OrderStatus = "completed"
	StatusAccepted       OrderStatus = "accepted"
	StatusDeclined       OrderStatus = "declined"
	StatusCancelled      OrderStatus = "cancelled"
)

var orderStatuses = map[OrderStatus]bool{
	StatusPending:        true,
	StatusToPay:          true,
	StatusProcessing:     true,
	StatusReadyForPickup: true,
	StatusClaimed:        true,
	StatusToReceive:      true,
	StatusCompleted:      true,
	StatusAccepted:       true,
	StatusDeclined:       true,
	StatusCancelled:      true,
}

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	return orderStatuses[s]
}

// PaymentMethod способ оплаты
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	// PaymentEWallet асинхронный электронный кошелек: оплата подтверждается администратором по чеку
	PaymentEWallet      PaymentMethod = "e_wallet"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// PaymentStatus статус оплаты, независимый от статуса доставки
type PaymentStatus string

const (
	PaymentToPay                  PaymentStatus = "to_pay"
	PaymentWaitingForConfirmation PaymentStatus = "waiting_for_confirmation"
	PaymentPaid                   PaymentStatus = "paid"
)

// DeliveryMethod способ получения заказа
type DeliveryMethod string

const (
	DeliveryDelivery DeliveryMethod = "delivery"
	DeliveryPickup   DeliveryMethod = "pickup"
)

// Order представляет заказ или заявку (booking, special order, customized).
// Status и PaymentStatus выставляются только действиями администратора;
// если они пустые, статус вычисляется при чтении (см. пакет lifecycle).
type Order struct {
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at,omitzero"`
	ID             string         `json:"id"`
	Kind           OrderKind      `json:"kind"`
	CustomerID     string         `json:"customer_id,omitempty"`
	Status         OrderStatus    `json:"status,omitempty"`
	PaymentStatus  PaymentStatus  `json:"payment_status,omitempty"`
	PaymentMethod  PaymentMethod  `json:"payment_method,omitempty"`
	DeliveryMethod DeliveryMethod `json:"delivery_method,omitempty"`
	Items          []OrderItem    `json:"items,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Amount         float64        `json:"amount"`
}

// OrderItem позиция заказа
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderView заказ вместе с вычисленными статусами
type OrderView struct {
	Order
	DisplayStatus        OrderStatus   `json:"display_status"`
	DisplayPaymentStatus PaymentStatus `json:"display_payment_status"`
}
