// Package events publishes order lifecycle events for downstream consumers
// such as result-entry and billing workflows.
package events

import (
	"context"
	"time"

	"labcommerce/internal/domain"
)

const (
	TypeOrderCreated        = "order.created"
	TypeOrderStatusChanged  = "order.status_changed"
	TypeOrderPaymentUpdated = "order.payment_updated"
	TypeResultUpdated       = "result.updated"
	TypeReviewSubmitted     = "review.submitted"
)

type Event struct {
	Type          string               `json:"type"`
	OrderID       string               `json:"orderId,omitempty"`
	OrderNumber   string               `json:"orderNumber,omitempty"`
	OwnerID       string               `json:"ownerId,omitempty"`
	ItemID        string               `json:"itemId,omitempty"`
	Status        string               `json:"status,omitempty"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus,omitempty"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// Key partitions events so that one order's events stay in order.
func (e Event) Key() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.ItemID
}

// OrderEvent builds an event describing o.
func OrderEvent(typ string, o *domain.Order) Event {
	return Event{
		Type:          typ,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		OwnerID:       o.OwnerID,
		Status:        string(o.Status),
		PaymentStatus: o.PaymentStatus,
		OccurredAt:    time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type nopPublisher struct{}

// Nop discards events. Used when no brokers are configured.
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }
