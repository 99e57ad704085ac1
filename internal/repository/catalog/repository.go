package catalog

import (
	"context"

	"labcommerce/internal/domain"
)

type Repository interface {
	List(ctx context.Context, category string) ([]domain.CatalogItem, error)
	Categories(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string) (*domain.CatalogItem, error)
	// GetByIDs returns the items found, keyed by id. Missing ids are simply absent.
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.CatalogItem, error)
	Upsert(ctx context.Context, item domain.CatalogItem) (*domain.CatalogItem, error)
}
