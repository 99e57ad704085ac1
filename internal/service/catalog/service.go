package catalog

import (
	"context"
	"strings"

	"labcommerce/internal/domain"
)

type catalogRepo interface {
	List(ctx context.Context, category string) ([]domain.CatalogItem, error)
	Categories(ctx context.Context) ([]string, error)
	GetByID(ctx context.Context, id string) (*domain.CatalogItem, error)
}

// Service exposes the read-only catalog.
type Service struct {
	repo catalogRepo
}

func New(repo catalogRepo) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, category string) ([]domain.CatalogItem, error) {
	items, err := s.repo.List(ctx, strings.ToLower(strings.TrimSpace(category)))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	return items, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []string{}
	}
	return cats, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.CatalogItem, error) {
	return s.repo.GetByID(ctx, id)
}
