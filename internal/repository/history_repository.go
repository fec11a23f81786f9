package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saos/service-desk/internal/domain"
)

// HistoryFilter narrows ledger listings across requests.
type HistoryFilter struct {
	RequestID *int64
	UserID    *int64
	Action    *domain.HistoryAction
	From      *time.Time
	To        *time.Time
	Limit     int
}

// HistoryRepository stores the append-only audit ledger. It has no update
// or delete.
type HistoryRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.HistoryEntry) error
	ListByRequest(ctx context.Context, requestID int64, limit int) ([]domain.HistoryEntry, error)
	List(ctx context.Context, filter HistoryFilter) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, tx pgx.Tx, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO request_history (request_id, user_id, action, description, before_data, after_data, ip_address, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return querier(r.pool, tx).QueryRow(ctx, query,
		entry.RequestID,
		entry.UserID,
		entry.Action,
		entry.Description,
		payload(entry.Before),
		payload(entry.After),
		entry.IPAddress,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *historyRepository) ListByRequest(ctx context.Context, requestID int64, limit int) ([]domain.HistoryEntry, error) {
	return r.List(ctx, HistoryFilter{RequestID: &requestID, Limit: limit})
}

func (r *historyRepository) List(ctx context.Context, filter HistoryFilter) ([]domain.HistoryEntry, error) {
	builder := psql.Select(
		"h.id", "h.request_id", "h.user_id", "COALESCE(u.name, '')", "h.action", "h.description",
		"h.before_data", "h.after_data", "h.ip_address", "h.created_at",
	).
		From("request_history h").
		LeftJoin("users u ON u.id = h.user_id").
		OrderBy("h.created_at DESC", "h.id DESC").
		Limit(limitOrDefault(filter.Limit, 100))

	if filter.RequestID != nil {
		builder = builder.Where(sq.Eq{"h.request_id": *filter.RequestID})
	}
	if filter.UserID != nil {
		builder = builder.Where(sq.Eq{"h.user_id": *filter.UserID})
	}
	if filter.Action != nil {
		builder = builder.Where(sq.Eq{"h.action": string(*filter.Action)})
	}
	if filter.From != nil {
		builder = builder.Where(sq.GtOrEq{"h.created_at": *filter.From})
	}
	if filter.To != nil {
		builder = builder.Where(sq.LtOrEq{"h.created_at": *filter.To})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.HistoryEntry{}
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.UserID,
			&entry.UserName,
			&entry.Action,
			&entry.Description,
			&entry.Before,
			&entry.After,
			&entry.IPAddress,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// payload stores empty maps as SQL NULL.
func payload(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
