package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saos/service-desk/internal/domain"
)

// CommentRepository manages request comments.
type CommentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, comment *domain.Comment) error
	ListByRequest(ctx context.Context, requestID int64, includeInternal bool) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, tx pgx.Tx, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (request_id, author_id, body, internal, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return querier(r.pool, tx).QueryRow(ctx, query,
		comment.RequestID,
		comment.AuthorID,
		comment.Body,
		comment.Internal,
		comment.CreatedAt,
	).Scan(&comment.ID)
}

func (r *commentRepository) ListByRequest(ctx context.Context, requestID int64, includeInternal bool) ([]domain.Comment, error) {
	const query = `
        SELECT c.id, c.request_id, c.author_id, u.name, c.body, c.internal, c.created_at
        FROM comments c JOIN users u ON u.id = c.author_id
        WHERE c.request_id=$1 AND ($2 OR NOT c.internal)
        ORDER BY c.created_at ASC, c.id ASC`
	rows, err := r.pool.Query(ctx, query, requestID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.RequestID,
			&comment.AuthorID,
			&comment.AuthorName,
			&comment.Body,
			&comment.Internal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
