package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/ewm/internal/platform/pagination"
	"github.com/louisbranch/ewm/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
)

// CreateCategory inserts a category. Names are unique ignoring case.
func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Category{}, err
	}
	result, err := s.q.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, category.Name)
	if err != nil {
		if sqlitedb.IsUniqueViolation(err) {
			return domain.Category{}, domain.ErrAlreadyExists
		}
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}
	if category.ID, err = result.LastInsertId(); err != nil {
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// GetCategory returns one category by id.
func (s *Store) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Category{}, err
	}
	var category domain.Category
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, id,
	).Scan(&category.ID, &category.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

// UpdateCategory renames a category.
func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Category{}, err
	}
	result, err := s.q.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ?`, category.Name, category.ID)
	if err != nil {
		if sqlitedb.IsUniqueViolation(err) {
			return domain.Category{}, domain.ErrAlreadyExists
		}
		return domain.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := affectedOrNotFound(result); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

// ListCategories returns one page of categories ordered by id.
func (s *Store) ListCategories(ctx context.Context, page pagination.Page) ([]domain.Category, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY id LIMIT ? OFFSET ?`, pageArgs(page)...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// DeleteCategory removes a category.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		if sqlitedb.IsForeignKeyViolation(err) {
			return domain.ErrReferenced
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return affectedOrNotFound(result)
}

// CategoryInUse reports whether any event references the category.
func (s *Store) CategoryInUse(ctx context.Context, id int64) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var inUse bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE category_id = ?)`, id,
	).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("check category usage: %w", err)
	}
	return inUse, nil
}
