package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusScheduled  OrderStatus = "scheduled"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing: {OrderStatusScheduled, OrderStatusCancelled},
	OrderStatusScheduled:  {OrderStatusCompleted, OrderStatusCancelled},
}

// ParseOrderStatus accepts the lower-case wire form, case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case OrderStatusProcessing, OrderStatusScheduled, OrderStatusCompleted, OrderStatusCancelled:
		return st, nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown order status %q", s), "status")
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is reachable in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo returns ErrInvalidTransition (wrapped) when next is not reachable.
func (s OrderStatus) TransitionTo(next OrderStatus) error {
	if s.CanTransitionTo(next) {
		return nil
	}
	if s.Terminal() {
		return fmt.Errorf("%w: order is %s", ErrInvalidTransition, s)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return st, nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown payment status %q", s), "paymentStatus")
}

// CanMoveTo guards payment updates: refunds need a prior payment and a refund is final.
func (s PaymentStatus) CanMoveTo(next PaymentStatus) bool {
	switch {
	case s == PaymentStatusRefunded:
		return false
	case next == PaymentStatusRefunded:
		return s == PaymentStatusPaid
	default:
		return true
	}
}

type PaymentMethod string

const (
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodCash      PaymentMethod = "cash"
	PaymentMethodInsurance PaymentMethod = "insurance"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodInsurance:
		return m, nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown payment method %q", s), "paymentMethod")
}

// PaymentPath selects how an order is paid for. The two paths differ only in
// initial status and payment metadata.
type PaymentPath string

const (
	PaymentPathSelfPay   PaymentPath = "self_pay"
	PaymentPathInsurance PaymentPath = "insurance"
)

// InitialStatuses returns the order and payment status a new order starts in.
func (p PaymentPath) InitialStatuses() (OrderStatus, PaymentStatus) {
	if p == PaymentPathInsurance {
		return OrderStatusProcessing, PaymentStatusProcessing
	}
	return OrderStatusScheduled, PaymentStatusPending
}

// Buyer holds the contact and demographic fields captured at checkout.
type Buyer struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	AddressLine string `json:"addressLine,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
}

type Insurance struct {
	Provider     string `json:"provider"`
	PolicyNumber string `json:"policyNumber"`
}

// OrderItem is a snapshot of a catalog item at order time. It never changes afterwards.
type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	ItemID      string          `json:"itemId"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type Order struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	OwnerID        string          `json:"ownerId"`
	Status         OrderStatus     `json:"status"`
	Items          []OrderItem     `json:"items"`
	Results        []Result        `json:"results,omitempty"`
	Buyer          Buyer           `json:"buyer"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Fee            decimal.Decimal `json:"fee"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	TransactionID  *string         `json:"transactionId,omitempty"`
	Insurance      *Insurance      `json:"insurance,omitempty"`
	IdempotencyKey *string         `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// PaymentUpdate carries the fields changed by a payment-status update.
type PaymentUpdate struct {
	Status        PaymentStatus
	Method        *PaymentMethod
	TransactionID *string
}
