package result

import (
	"context"

	"labcommerce/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Result, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Result, error)
	// HasCompleted reports whether the patient owns an order with a completed
	// result for the catalog item.
	HasCompleted(ctx context.Context, patientID, itemID string) (bool, error)
	// Update locks the result row and persists it after fn mutates it.
	Update(ctx context.Context, id string, fn func(r *domain.Result) error) (*domain.Result, error)
}
