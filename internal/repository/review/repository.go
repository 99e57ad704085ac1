package review

import (
	"context"

	"labcommerce/internal/domain"
)

type Repository interface {
	Get(ctx context.Context, patientID, itemID string) (*domain.Review, error)
	// CreateIfEligible inserts the review only when the patient has a completed
	// result for the item and no earlier review of it. Otherwise it returns
	// domain.ErrNotEligible and writes nothing.
	CreateIfEligible(ctx context.Context, rv domain.Review) (*domain.Review, error)
	ListByItem(ctx context.Context, itemID string) ([]domain.Review, error)
}
