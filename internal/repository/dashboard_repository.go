package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saos/service-desk/internal/domain"
)

// DashboardRepository computes read-only rollups over current request state.
type DashboardRepository interface {
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) ([]domain.GroupCount, error)
	CountByPriority(ctx context.Context) ([]domain.GroupCount, error)
	CountUrgent(ctx context.Context, now, until time.Time, terminal []int64) (int64, error)
	CountOverdue(ctx context.Context, now time.Time, terminal []int64) (int64, error)
	AdminStats(ctx context.Context) (*domain.AdminStats, error)
}

type dashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository builds repository.
func NewDashboardRepository(pool *pgxpool.Pool) DashboardRepository {
	return &dashboardRepository{pool: pool}
}

func (r *dashboardRepository) CountAll(ctx context.Context) (int64, error) {
	return r.count(ctx, psql.Select("COUNT(*)").From("requests r"))
}

// CountByStatus lists every active status in display order, zero counts included.
func (r *dashboardRepository) CountByStatus(ctx context.Context) ([]domain.GroupCount, error) {
	builder := psql.Select("s.id", "s.name", "s.color", "COUNT(r.id)").
		From("statuses s").
		LeftJoin("requests r ON r.status_id = s.id").
		Where(sq.Eq{"s.active": true}).
		GroupBy("s.id", "s.name", "s.color", "s.sort_order").
		OrderBy("s.sort_order ASC", "s.id ASC")
	return r.groups(ctx, builder)
}

func (r *dashboardRepository) CountByPriority(ctx context.Context) ([]domain.GroupCount, error) {
	builder := psql.Select("p.id", "p.name", "''", "COUNT(r.id)").
		From("priorities p").
		LeftJoin("requests r ON r.priority_id = p.id").
		Where(sq.Eq{"p.active": true}).
		GroupBy("p.id", "p.name", "p.sort_order").
		OrderBy("p.sort_order ASC", "p.id ASC")
	return r.groups(ctx, builder)
}

func (r *dashboardRepository) CountUrgent(ctx context.Context, now, until time.Time, terminal []int64) (int64, error) {
	builder := psql.Select("COUNT(*)").From("requests r").
		Where(sq.GtOrEq{"r.resolution_deadline": now}).
		Where(sq.LtOrEq{"r.resolution_deadline": until})
	if len(terminal) > 0 {
		builder = builder.Where(sq.NotEq{"r.status_id": terminal})
	}
	return r.count(ctx, builder)
}

func (r *dashboardRepository) CountOverdue(ctx context.Context, now time.Time, terminal []int64) (int64, error) {
	builder := psql.Select("COUNT(*)").From("requests r").
		Where(sq.Lt{"r.resolution_deadline": now})
	if len(terminal) > 0 {
		builder = builder.Where(sq.NotEq{"r.status_id": terminal})
	}
	return r.count(ctx, builder)
}

func (r *dashboardRepository) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM users WHERE active),
            (SELECT COUNT(*) FROM categories WHERE active),
            (SELECT COUNT(*) FROM statuses WHERE active),
            (SELECT COUNT(*) FROM email_templates WHERE active)`
	var stats domain.AdminStats
	if err := r.pool.QueryRow(ctx, query).Scan(
		&stats.ActiveUsers,
		&stats.ActiveCategories,
		&stats.ActiveStatuses,
		&stats.ActiveTemplates,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *dashboardRepository) count(ctx context.Context, builder sq.SelectBuilder) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *dashboardRepository) groups(ctx context.Context, builder sq.SelectBuilder) ([]domain.GroupCount, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.GroupCount{}
	for rows.Next() {
		var g domain.GroupCount
		if err := rows.Scan(&g.ID, &g.Name, &g.Color, &g.Count); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}
