// Package lifecycle derives order and request statuses on read.
//
// Nothing here is persisted: an order keeps only what an administrator set
// explicitly, and the displayed status is computed from the elapsed time since
// creation. The thresholds are compatibility behavior; a recorded transition
// history would be the durable replacement.
package lifecycle

import (
	"time"

	"github.com/iudanet/petalsync/internal/models"
)

// Пороги возраста заказа
const (
	ToPayWindow       = 2 * time.Hour
	ProcessingWindow  = 8 * time.Hour
	ReadyPickupWindow = 12 * time.Hour
	CompletionAge     = 24 * time.Hour
)

// DeriveStatus returns the status displayed for o at now.
func DeriveStatus(o *models.Order, now time.Time) models.OrderStatus {
	isOrder := !o.Kind.IsRequest()
	cod := isOrder && o.PaymentMethod == models.PaymentCashOnDelivery

	if o.Status != "" {
		// заказы с наложенным платежом, созданные по старому правилу, не ждут оплаты
		if cod && o.Status == models.StatusPending {
			return models.StatusProcessing
		}
		return o.Status
	}

	if !isOrder {
		return models.StatusPending
	}

	if o.CreatedAt.IsZero() {
		return initialStatus(cod)
	}

	age := now.Sub(o.CreatedAt)
	switch {
	case age < ToPayWindow:
		return initialStatus(cod)
	case age < ProcessingWindow:
		return models.StatusProcessing
	case age >= CompletionAge:
		return models.StatusCompleted
	case o.DeliveryMethod == models.DeliveryPickup:
		if age < ReadyPickupWindow {
			return models.StatusReadyForPickup
		}
		return models.StatusClaimed
	default:
		return models.StatusToReceive
	}
}

func initialStatus(cod bool) models.OrderStatus {
	if cod {
		return models.StatusProcessing
	}
	return models.StatusToPay
}

// DerivePaymentStatus returns the payment status displayed for o.
// Only an administrator confirmation sets paid; otherwise e-wallet orders wait for
// confirmation of a receipt and everything else is to pay.
func DerivePaymentStatus(o *models.Order) models.PaymentStatus {
	if o.PaymentStatus == models.PaymentPaid {
		return models.PaymentPaid
	}
	if o.PaymentMethod == models.PaymentEWallet {
		return models.PaymentWaitingForConfirmation
	}
	return models.PaymentToPay
}

// View pairs o with its derived statuses.
func View(o models.Order, now time.Time) models.OrderView {
	return models.OrderView{
		Order:                o,
		DisplayStatus:        DeriveStatus(&o, now),
		DisplayPaymentStatus: DerivePaymentStatus(&o),
	}
}

// Views derives every order in orders at the same instant.
func Views(orders []models.Order, now time.Time) []models.OrderView {
	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, View(o, now))
	}
	return views
}
