package service

import (
	"context"

	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

// CatalogService serves the priority, status and category reference data.
type CatalogService struct {
	catalog repository.CatalogRepository
}

// NewCatalogService constructs the service.
func NewCatalogService(catalog repository.CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) Priorities(ctx context.Context, activeOnly bool) ([]domain.Priority, error) {
	items, err := s.catalog.ListPriorities(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return items, nil
}

func (s *CatalogService) Statuses(ctx context.Context, activeOnly bool) ([]domain.Status, error) {
	items, err := s.catalog.ListStatuses(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return items, nil
}

func (s *CatalogService) Categories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	items, err := s.catalog.ListCategories(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return items, nil
}
