package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType причина появления уведомления
type NotificationType string

const (
	NotificationOrderAccepted    NotificationType = "order_accepted"
	NotificationOrderDeclined    NotificationType = "order_declined"
	NotificationOrderStatus      NotificationType = "order_status"
	NotificationPaymentRequested NotificationType = "payment_requested"
	NotificationPaymentConfirmed NotificationType = "payment_confirmed"
	NotificationMessage          NotificationType = "message"
)

// Notification элемент ленты уведомлений получателя
type Notification struct {
	Timestamp time.Time        `json:"timestamp"`
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Icon      string           `json:"icon,omitempty"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
}

// NewNotification creates an unread notification with a fresh id.
func NewNotification(typ NotificationType, title, body, link string, at time.Time) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Type:      typ,
		Title:     title,
		Body:      body,
		Link:      link,
		Timestamp: at,
	}
}
