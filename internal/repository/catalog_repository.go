package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saos/service-desk/internal/domain"
)

// CatalogRepository reads priority, status and category reference data.
// The core never writes these tables.
type CatalogRepository interface {
	GetPriority(ctx context.Context, id int64) (*domain.Priority, error)
	GetStatus(ctx context.Context, id int64) (*domain.Status, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	ListPriorities(ctx context.Context, activeOnly bool) ([]domain.Priority, error)
	ListStatuses(ctx context.Context, activeOnly bool) ([]domain.Status, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error)
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository builds repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) GetPriority(ctx context.Context, id int64) (*domain.Priority, error) {
	const query = `SELECT id, name, sort_order, sla_hours, escalation_hours, active FROM priorities WHERE id=$1`
	var p domain.Priority
	if err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Order, &p.SLAHours, &p.EscalationHours, &p.Active); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepository) GetStatus(ctx context.Context, id int64) (*domain.Status, error) {
	const query = `SELECT id, name, color, sort_order, finalizing, active FROM statuses WHERE id=$1`
	var s domain.Status
	if err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Color, &s.Order, &s.Finalizing, &s.Active); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *catalogRepository) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	const query = `SELECT id, name, description, active FROM categories WHERE id=$1`
	var c domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description, &c.Active); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *catalogRepository) ListPriorities(ctx context.Context, activeOnly bool) ([]domain.Priority, error) {
	const query = `
        SELECT id, name, sort_order, sla_hours, escalation_hours, active
        FROM priorities WHERE ($1 = FALSE OR active) ORDER BY sort_order ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Priority{}
	for rows.Next() {
		var p domain.Priority
		if err := rows.Scan(&p.ID, &p.Name, &p.Order, &p.SLAHours, &p.EscalationHours, &p.Active); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *catalogRepository) ListStatuses(ctx context.Context, activeOnly bool) ([]domain.Status, error) {
	const query = `
        SELECT id, name, color, sort_order, finalizing, active
        FROM statuses WHERE ($1 = FALSE OR active) ORDER BY sort_order ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Status{}
	for rows.Next() {
		var s domain.Status
		if err := rows.Scan(&s.ID, &s.Name, &s.Color, &s.Order, &s.Finalizing, &s.Active); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *catalogRepository) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	const query = `
        SELECT id, name, description, active
        FROM categories WHERE ($1 = FALSE OR active) ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Active); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
