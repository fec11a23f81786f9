package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saos/service-desk/internal/domain"
)

// ErrDuplicateTemplateName signals another active template already uses the name.
var ErrDuplicateTemplateName = errors.New("template name already in use")

const templateNameIndex = "uq_email_templates_active_name"

// TemplateRepository is the sole writer of email templates.
type TemplateRepository interface {
	List(ctx context.Context, activeOnly bool) ([]domain.EmailTemplate, error)
	GetByID(ctx context.Context, id int64) (*domain.EmailTemplate, error)
	GetByName(ctx context.Context, name string) (*domain.EmailTemplate, error)
	Create(ctx context.Context, tpl *domain.EmailTemplate) error
	Update(ctx context.Context, tpl *domain.EmailTemplate) error
	SetActive(ctx context.Context, id int64, active bool, at time.Time) error
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository builds repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

const templateColumns = `id, name, subject, html_body, text_body, variables, active, created_at, updated_at`

func (r *templateRepository) List(ctx context.Context, activeOnly bool) ([]domain.EmailTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM email_templates WHERE ($1 = FALSE OR active) ORDER BY name ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.EmailTemplate{}
	for rows.Next() {
		var tpl domain.EmailTemplate
		if err := rows.Scan(templateDest(&tpl)...); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}

// GetByID does not filter on active so disabled templates stay inspectable.
func (r *templateRepository) GetByID(ctx context.Context, id int64) (*domain.EmailTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM email_templates WHERE id=$1`
	var tpl domain.EmailTemplate
	if err := r.pool.QueryRow(ctx, query, id).Scan(templateDest(&tpl)...); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// GetByName only returns active templates.
func (r *templateRepository) GetByName(ctx context.Context, name string) (*domain.EmailTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM email_templates WHERE name=$1 AND active ORDER BY id ASC LIMIT 1`
	var tpl domain.EmailTemplate
	if err := r.pool.QueryRow(ctx, query, name).Scan(templateDest(&tpl)...); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepository) Create(ctx context.Context, tpl *domain.EmailTemplate) error {
	const query = `
        INSERT INTO email_templates (name, subject, html_body, text_body, variables, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		tpl.Name,
		tpl.Subject,
		tpl.HTMLBody,
		tpl.TextBody,
		variablesOrEmpty(tpl.Variables),
		tpl.Active,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	).Scan(&tpl.ID)
	if isUniqueViolation(err, templateNameIndex) {
		return ErrDuplicateTemplateName
	}
	return err
}

func (r *templateRepository) Update(ctx context.Context, tpl *domain.EmailTemplate) error {
	const query = `
        UPDATE email_templates SET name=$1, subject=$2, html_body=$3, text_body=$4, variables=$5, active=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		tpl.Name,
		tpl.Subject,
		tpl.HTMLBody,
		tpl.TextBody,
		variablesOrEmpty(tpl.Variables),
		tpl.Active,
		tpl.UpdatedAt,
		tpl.ID,
	)
	if isUniqueViolation(err, templateNameIndex) {
		return ErrDuplicateTemplateName
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *templateRepository) SetActive(ctx context.Context, id int64, active bool, at time.Time) error {
	const query = `UPDATE email_templates SET active=$1, updated_at=$2 WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, active, at, id)
	if isUniqueViolation(err, templateNameIndex) {
		return ErrDuplicateTemplateName
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func templateDest(tpl *domain.EmailTemplate) []any {
	return []any{
		&tpl.ID,
		&tpl.Name,
		&tpl.Subject,
		&tpl.HTMLBody,
		&tpl.TextBody,
		&tpl.Variables,
		&tpl.Active,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	}
}

func variablesOrEmpty(vars []string) []string {
	if vars == nil {
		return []string{}
	}
	return vars
}
