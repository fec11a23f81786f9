package repository

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saos/service-desk/internal/domain"
)

// ErrDuplicateReference signals that another request already holds the reference code.
var ErrDuplicateReference = errors.New("reference code already in use")

const referenceCodeConstraint = "requests_reference_code_key"

// RequestFilter narrows request listings. Zero values mean "any".
type RequestFilter struct {
	ClientID     *int64
	TechnicianID *int64
	StatusID     *int64
	PriorityID   *int64
	CategoryID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// RequestRepository encapsulates request persistence.
type RequestRepository interface {
	Create(ctx context.Context, tx pgx.Tx, req *domain.Request) error
	Update(ctx context.Context, tx pgx.Tx, req *domain.Request) error
	GetByID(ctx context.Context, id int64) (*domain.Request, error)
	GetDetail(ctx context.Context, id int64) (*domain.RequestDetail, error)
	GetDetailByReference(ctx context.Context, code string) (*domain.RequestDetail, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.RequestDetail, error)
	ListUrgent(ctx context.Context, now, until time.Time, terminal []int64, limit int) ([]domain.RequestDetail, error)
	ListOverdue(ctx context.Context, now time.Time, terminal []int64, limit int) ([]domain.RequestDetail, error)
	CountByReferencePrefix(ctx context.Context, prefix string) (int, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

var requestColumns = []string{
	"r.id", "r.reference_code", "r.title", "r.description", "r.client_id", "r.category_id",
	"r.priority_id", "r.status_id", "r.technician_id", "r.created_by_id", "r.system_name", "r.module_name",
	"r.urgent", "r.confidential", "r.resolution_deadline", "r.escalation_deadline",
	"r.resolved_at", "r.closed_at", "r.created_at", "r.updated_at",
}

var detailColumns = append(append([]string{}, requestColumns...),
	"cl.name", "cl.email", "c.name", "p.name", "s.name", "s.color", "t.name", "t.email",
)

func (r *requestRepository) Create(ctx context.Context, tx pgx.Tx, req *domain.Request) error {
	const query = `
        INSERT INTO requests (reference_code, title, description, client_id, category_id, priority_id, status_id,
            technician_id, created_by_id, system_name, module_name, urgent, confidential,
            resolution_deadline, escalation_deadline, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING id`
	err := querier(r.pool, tx).QueryRow(ctx, query,
		req.ReferenceCode,
		req.Title,
		req.Description,
		req.ClientID,
		req.CategoryID,
		req.PriorityID,
		req.StatusID,
		req.TechnicianID,
		req.CreatedByID,
		req.System,
		req.Module,
		req.Urgent,
		req.Confidential,
		req.ResolutionDeadline,
		req.EscalationDeadline,
		req.CreatedAt,
		req.UpdatedAt,
	).Scan(&req.ID)
	if isUniqueViolation(err, referenceCodeConstraint) {
		return ErrDuplicateReference
	}
	if isForeignKeyViolation(err) {
		return ErrUnknownReference
	}
	return err
}

// Update writes every mutable column. Deadlines and the reference code are fixed at creation.
func (r *requestRepository) Update(ctx context.Context, tx pgx.Tx, req *domain.Request) error {
	const query = `
        UPDATE requests SET title=$1, description=$2, category_id=$3, priority_id=$4, status_id=$5,
            technician_id=$6, system_name=$7, module_name=$8, urgent=$9, confidential=$10,
            resolved_at=$11, closed_at=$12, updated_at=$13
        WHERE id=$14`
	cmd, err := querier(r.pool, tx).Exec(ctx, query,
		req.Title,
		req.Description,
		req.CategoryID,
		req.PriorityID,
		req.StatusID,
		req.TechnicianID,
		req.System,
		req.Module,
		req.Urgent,
		req.Confidential,
		req.ResolvedAt,
		req.ClosedAt,
		req.UpdatedAt,
		req.ID,
	)
	if isForeignKeyViolation(err) {
		return ErrUnknownReference
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id int64) (*domain.Request, error) {
	query, args, err := psql.Select(requestColumns...).
		From("requests r").
		Where(sq.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var req domain.Request
	if err := r.pool.QueryRow(ctx, query, args...).Scan(requestDest(&req)...); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) GetDetail(ctx context.Context, id int64) (*domain.RequestDetail, error) {
	return r.fetchDetail(ctx, sq.Eq{"r.id": id})
}

func (r *requestRepository) GetDetailByReference(ctx context.Context, code string) (*domain.RequestDetail, error) {
	return r.fetchDetail(ctx, sq.Eq{"r.reference_code": code})
}

func (r *requestRepository) fetchDetail(ctx context.Context, where sq.Sqlizer) (*domain.RequestDetail, error) {
	query, args, err := detailSelect().Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	var detail domain.RequestDetail
	if err := r.pool.QueryRow(ctx, query, args...).Scan(detailDest(&detail)...); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.RequestDetail, error) {
	builder := detailSelect()
	if filter.ClientID != nil {
		builder = builder.Where(sq.Eq{"r.client_id": *filter.ClientID})
	}
	if filter.TechnicianID != nil {
		builder = builder.Where(sq.Eq{"r.technician_id": *filter.TechnicianID})
	}
	if filter.StatusID != nil {
		builder = builder.Where(sq.Eq{"r.status_id": *filter.StatusID})
	}
	if filter.PriorityID != nil {
		builder = builder.Where(sq.Eq{"r.priority_id": *filter.PriorityID})
	}
	if filter.CategoryID != nil {
		builder = builder.Where(sq.Eq{"r.category_id": *filter.CategoryID})
	}
	if filter.CreatedFrom != nil {
		builder = builder.Where(sq.GtOrEq{"r.created_at": *filter.CreatedFrom})
	}
	if filter.CreatedTo != nil {
		builder = builder.Where(sq.LtOrEq{"r.created_at": *filter.CreatedTo})
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder = builder.OrderBy("r.created_at DESC").
		Limit(limitOrDefault(filter.Limit, 50)).
		Offset(uint64(offset))
	return r.queryDetails(ctx, builder)
}

func (r *requestRepository) ListUrgent(ctx context.Context, now, until time.Time, terminal []int64, limit int) ([]domain.RequestDetail, error) {
	builder := detailSelect().
		Where(sq.GtOrEq{"r.resolution_deadline": now}).
		Where(sq.LtOrEq{"r.resolution_deadline": until}).
		OrderBy("r.resolution_deadline ASC").
		Limit(limitOrDefault(limit, 50))
	if len(terminal) > 0 {
		builder = builder.Where(sq.NotEq{"r.status_id": terminal})
	}
	return r.queryDetails(ctx, builder)
}

func (r *requestRepository) ListOverdue(ctx context.Context, now time.Time, terminal []int64, limit int) ([]domain.RequestDetail, error) {
	builder := detailSelect().
		Where(sq.Lt{"r.resolution_deadline": now}).
		OrderBy("r.resolution_deadline ASC").
		Limit(limitOrDefault(limit, 50))
	if len(terminal) > 0 {
		builder = builder.Where(sq.NotEq{"r.status_id": terminal})
	}
	return r.queryDetails(ctx, builder)
}

func (r *requestRepository) CountByReferencePrefix(ctx context.Context, prefix string) (int, error) {
	const query = `SELECT COUNT(*) FROM requests WHERE reference_code LIKE $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, prefix+"%").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *requestRepository) queryDetails(ctx context.Context, builder sq.SelectBuilder) ([]domain.RequestDetail, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.RequestDetail{}
	for rows.Next() {
		var detail domain.RequestDetail
		if err := rows.Scan(detailDest(&detail)...); err != nil {
			return nil, err
		}
		result = append(result, detail)
	}
	return result, rows.Err()
}

func detailSelect() sq.SelectBuilder {
	return psql.Select(detailColumns...).
		From("requests r").
		Join("users cl ON cl.id = r.client_id").
		Join("categories c ON c.id = r.category_id").
		Join("priorities p ON p.id = r.priority_id").
		Join("statuses s ON s.id = r.status_id").
		LeftJoin("users t ON t.id = r.technician_id")
}

func requestDest(req *domain.Request) []any {
	return []any{
		&req.ID,
		&req.ReferenceCode,
		&req.Title,
		&req.Description,
		&req.ClientID,
		&req.CategoryID,
		&req.PriorityID,
		&req.StatusID,
		&req.TechnicianID,
		&req.CreatedByID,
		&req.System,
		&req.Module,
		&req.Urgent,
		&req.Confidential,
		&req.ResolutionDeadline,
		&req.EscalationDeadline,
		&req.ResolvedAt,
		&req.ClosedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	}
}

func detailDest(detail *domain.RequestDetail) []any {
	return append(requestDest(&detail.Request),
		&detail.ClientName,
		&detail.ClientEmail,
		&detail.CategoryName,
		&detail.PriorityName,
		&detail.StatusName,
		&detail.StatusColor,
		&detail.TechnicianName,
		&detail.TechnicianEmail,
	)
}
