package domain

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"github.com/louisbranch/ewm/internal/platform/pagination"
)

// CategoryService manages event categories.
type CategoryService struct {
	store Store
}

// NewCategoryService constructs category use-cases.
func NewCategoryService(store Store) *CategoryService {
	return &CategoryService{store: store}
}

func categoryExists(name string) error {
	return apperrors.Conflictf("Category with name=%s already exists", name)
}

// Create adds a category. Names are unique ignoring case.
func (s *CategoryService) Create(ctx context.Context, name string) (Category, error) {
	if s == nil || s.store == nil {
		return Category{}, ErrStoreNotConfigured
	}
	name = strings.TrimSpace(name)
	if err := checkLength("name", name, 1, 50); err != nil {
		return Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, Category{Name: name})
	if errors.Is(err, ErrAlreadyExists) {
		return Category{}, categoryExists(name)
	}
	if err != nil {
		return Category{}, err
	}
	return created, nil
}

// Update renames a category.
func (s *CategoryService) Update(ctx context.Context, id int64, name string) (Category, error) {
	if s == nil || s.store == nil {
		return Category{}, ErrStoreNotConfigured
	}
	name = strings.TrimSpace(name)
	if err := checkLength("name", name, 1, 50); err != nil {
		return Category{}, err
	}
	updated, err := s.store.UpdateCategory(ctx, Category{ID: id, Name: name})
	switch {
	case errors.Is(err, ErrNotFound):
		return Category{}, notFound(kindCategory, id)
	case errors.Is(err, ErrAlreadyExists):
		return Category{}, categoryExists(name)
	case err != nil:
		return Category{}, err
	}
	return updated, nil
}

// Delete removes a category no event uses.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	return s.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetCategory(ctx, id); err != nil {
			return lookupErr(err, kindCategory, id)
		}
		inUse, err := repo.CategoryInUse(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return apperrors.Conflictf("The category is not empty")
		}
		err = repo.DeleteCategory(ctx, id)
		if errors.Is(err, ErrReferenced) {
			return apperrors.Conflictf("The category is not empty")
		}
		return err
	})
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id int64) (Category, error) {
	if s == nil || s.store == nil {
		return Category{}, ErrStoreNotConfigured
	}
	category, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return Category{}, lookupErr(err, kindCategory, id)
	}
	return category, nil
}

// List pages through categories by id.
func (s *CategoryService) List(ctx context.Context, page pagination.Page) ([]Category, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.store.ListCategories(ctx, page)
}
