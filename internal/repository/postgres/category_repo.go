package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/obligo/obligo-backend/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// GetByID retrieves a category by its ID for a user
func (r *CategoryRepository) GetByID(userID int32, id int32) (*domain.Category, error) {
	var category domain.Category
	var scope string
	err := r.pool.QueryRow(context.Background(), `
		SELECT id, user_id, name, scope
		FROM categories
		WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&category.ID, &category.UserID, &category.Name, &scope)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	category.Scope = domain.CategoryScope(scope)
	return &category, nil
}
