package cart

import (
	"context"

	"labcommerce/internal/domain"
)

// Repository keeps the cart on the client device, one cart per profile.
type Repository interface {
	Load(ctx context.Context) ([]domain.CartLine, error)
	// Save replaces the stored cart with lines.
	Save(ctx context.Context, lines []domain.CartLine) error
}
