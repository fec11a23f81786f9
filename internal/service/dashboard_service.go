package service

import (
	"context"

	"github.com/saos/service-desk/internal/config"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

// DashboardService computes read-only rollups on every call.
type DashboardService struct {
	dashboard repository.DashboardRepository
	cfg       config.LifecycleConfig
	clock     Clock
}

// DashboardDependencies bundles collaborators for the dashboard.
type DashboardDependencies struct {
	DashboardRepo repository.DashboardRepository
	Config        config.LifecycleConfig
	Clock         Clock
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	return &DashboardService{
		dashboard: deps.DashboardRepo,
		cfg:       deps.Config,
		clock:     deps.Clock,
	}
}

// Snapshot returns totals, per-status and per-priority counts, and the urgent
// and overdue counts as of now.
func (s *DashboardService) Snapshot(ctx context.Context) (*domain.DashboardSnapshot, error) {
	now := s.clock.now()

	total, err := s.dashboard.CountAll(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	byStatus, err := s.dashboard.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	byPriority, err := s.dashboard.CountByPriority(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	urgent, err := s.dashboard.CountUrgent(ctx, now, now.Add(s.cfg.UrgentWindow()), s.cfg.TerminalStatusIDs)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	overdue, err := s.dashboard.CountOverdue(ctx, now, s.cfg.TerminalStatusIDs)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	return &domain.DashboardSnapshot{
		Total:       total,
		ByStatus:    byStatus,
		ByPriority:  byPriority,
		Urgent:      urgent,
		Overdue:     overdue,
		GeneratedAt: now,
	}, nil
}

// AdminStats counts active reference rows for the admin panel.
func (s *DashboardService) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	stats, err := s.dashboard.AdminStats(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return stats, nil
}
