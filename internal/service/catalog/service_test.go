package catalog

import (
	"context"
	"testing"

	"labcommerce/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	gotCategory string
	items       []domain.CatalogItem
	cats        []string
}

func (s *stubRepo) List(_ context.Context, category string) ([]domain.CatalogItem, error) {
	s.gotCategory = category
	return s.items, nil
}

func (s *stubRepo) Categories(context.Context) ([]string, error) { return s.cats, nil }

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.CatalogItem, error) {
	for _, it := range s.items {
		if it.ID == id {
			return &it, nil
		}
	}
	return nil, domain.ErrNotFound
}

func TestListNormalisesCategory(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo)

	items, err := svc.List(context.Background(), "  Blood ")
	require.NoError(t, err)
	assert.Equal(t, "blood", repo.gotCategory)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cats)
}

func TestGetMissing(t *testing.T) {
	_, err := New(&stubRepo{}).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
