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

// ErrDuplicateUser signals a clash on e-mail or tax id.
var ErrDuplicateUser = errors.New("user e-mail or tax id already registered")

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role       *domain.UserRole
	ActiveOnly bool
	Limit      int
	Offset     int
}

// UserRepository defines persistence access for users of every role.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByTaxID(ctx context.Context, taxID string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	TouchLastAccess(ctx context.Context, id int64, at time.Time) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

var userColumns = []string{
	"id", "name", "email", "tax_id", "phone", "role", "active", "password_hash",
	"last_access_at", "created_at", "updated_at",
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, tax_id, phone, role, active, password_hash, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.TaxID,
		user.Phone,
		user.Role,
		user.Active,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if isUniqueViolation(err, "") {
		return ErrDuplicateUser
	}
	return err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, tax_id=$3, phone=$4, role=$5, active=$6, password_hash=$7, updated_at=$8
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Email,
		user.TaxID,
		user.Phone,
		user.Role,
		user.Active,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if isUniqueViolation(err, "") {
		return ErrDuplicateUser
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchOne(ctx, sq.Eq{"id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchOne(ctx, sq.Expr("LOWER(email) = LOWER(?)", email))
}

func (r *userRepository) GetByTaxID(ctx context.Context, taxID string) (*domain.User, error) {
	return r.fetchOne(ctx, sq.Eq{"tax_id": taxID})
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	builder := psql.Select(userColumns...).From("users").OrderBy("name ASC", "id ASC").
		Limit(limitOrDefault(filter.Limit, 200))
	if filter.Role != nil {
		builder = builder.Where(sq.Eq{"role": string(*filter.Role)})
	}
	if filter.ActiveOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
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

	result := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(userDest(&user)...); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) TouchLastAccess(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_access_at=$1 WHERE id=$2`, at, id)
	return err
}

func (r *userRepository) fetchOne(ctx context.Context, where sq.Sqlizer) (*domain.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, args...).Scan(userDest(&user)...); err != nil {
		return nil, err
	}
	return &user, nil
}

func userDest(user *domain.User) []any {
	return []any{
		&user.ID,
		&user.Name,
		&user.Email,
		&user.TaxID,
		&user.Phone,
		&user.Role,
		&user.Active,
		&user.PasswordHash,
		&user.LastAccessAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	}
}
