package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/obligo/obligo-backend/internal/domain"
)

// TemplateRepository implements domain.TemplateRepository using PostgreSQL
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

const templateColumns = `id, user_id, concept, category_id, currency, due_day, is_active,
	created_at, updated_at, deleted_at`

// Create creates a new recurring expense template
func (r *TemplateRepository) Create(template *domain.RecurringExpense) (*domain.RecurringExpense, error) {
	var dueDay pgtype.Int4
	if template.DueDay != nil {
		dueDay = pgtype.Int4{Int32: *template.DueDay, Valid: true}
	}

	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO recurring_expenses (user_id, concept, category_id, currency, due_day, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+templateColumns,
		template.UserID, template.Concept, template.CategoryID, template.Currency, dueDay, template.IsActive)
	return scanTemplate(row)
}

// GetByID retrieves a template by its ID for a user
func (r *TemplateRepository) GetByID(userID int32, id int32) (*domain.RecurringExpense, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT `+templateColumns+`
		FROM recurring_expenses
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID)
	template, err := scanTemplate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return template, nil
}

// ListByUser retrieves a user's templates, optionally active ones only
func (r *TemplateRepository) ListByUser(userID int32, activeOnly bool) ([]*domain.RecurringExpense, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM recurring_expenses
		WHERE user_id = $1 AND deleted_at IS NULL`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY concept`

	rows, err := r.pool.Query(context.Background(), query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTemplates(rows)
}

// ListActive retrieves active, non-deleted templates. A nil userID scopes
// to all users, for the system-wide generation run.
func (r *TemplateRepository) ListActive(userID *int32) ([]*domain.RecurringExpense, error) {
	ctx := context.Background()
	query := `
		SELECT ` + templateColumns + `
		FROM recurring_expenses
		WHERE is_active AND deleted_at IS NULL`

	var rows pgx.Rows
	var err error
	if userID != nil {
		rows, err = r.pool.Query(ctx, query+` AND user_id = $1 ORDER BY id`, *userID)
	} else {
		rows, err = r.pool.Query(ctx, query+` ORDER BY id`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTemplates(rows)
}

// Update updates an existing template
func (r *TemplateRepository) Update(template *domain.RecurringExpense) (*domain.RecurringExpense, error) {
	var dueDay pgtype.Int4
	if template.DueDay != nil {
		dueDay = pgtype.Int4{Int32: *template.DueDay, Valid: true}
	}

	row := r.pool.QueryRow(context.Background(), `
		UPDATE recurring_expenses
		SET concept = $3, category_id = $4, currency = $5, due_day = $6, is_active = $7, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING `+templateColumns,
		template.ID, template.UserID, template.Concept, template.CategoryID,
		template.Currency, dueDay, template.IsActive)
	updated, err := scanTemplate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return updated, nil
}

// SoftDelete marks a template as deleted. Existing instances are untouched.
func (r *TemplateRepository) SoftDelete(userID int32, id int32) error {
	tag, err := r.pool.Exec(context.Background(), `
		UPDATE recurring_expenses
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTemplateNotFound
	}
	return nil
}

func scanTemplate(row pgx.Row) (*domain.RecurringExpense, error) {
	var (
		template  domain.RecurringExpense
		dueDay    pgtype.Int4
		deletedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&template.ID, &template.UserID, &template.Concept, &template.CategoryID,
		&template.Currency, &dueDay, &template.IsActive,
		&template.CreatedAt, &template.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if dueDay.Valid {
		template.DueDay = &dueDay.Int32
	}
	if deletedAt.Valid {
		template.DeletedAt = &deletedAt.Time
	}
	return &template, nil
}

func scanTemplates(rows pgx.Rows) ([]*domain.RecurringExpense, error) {
	var templates []*domain.RecurringExpense
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	return templates, rows.Err()
}
