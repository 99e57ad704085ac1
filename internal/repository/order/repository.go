package order

import (
	"context"
	"errors"

	"labcommerce/internal/domain"
)

// ErrDuplicateIdempotencyKey means the owner already placed an order with this key.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

// ListFilter narrows the back-office order listing. Zero values mean no filter.
type ListFilter struct {
	Status domain.OrderStatus
	Limit  int
	Offset int
}

type Repository interface {
	// Create stores the order, its items and one pending result per item in a
	// single transaction. The order number must already be set; a clash yields
	// domain.ErrAlreadyExists.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)
	ListAll(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	// Update locks the order row, hands the current state to fn and persists
	// status and payment fields if fn returns nil.
	Update(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error)
}
