package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"schedule-manager/internal/model"
	"schedule-manager/internal/repository"
)

const maxCategoryNameLen = 50

// CategoryService owns category creation and listing.
type CategoryService struct {
	categories CategoryStore
	users      UserStore
	opts       options
}

func NewCategoryService(categories CategoryStore, users UserStore, opts ...Option) *CategoryService {
	return &CategoryService{categories: categories, users: users, opts: buildOptions(opts)}
}

// CreateDefaultCategories creates the fixed starter categories for a user.
// Calling it twice for the same user fails on the first name.
func (s *CategoryService) CreateDefaultCategories(ctx context.Context, userID uint) ([]model.Category, error) {
	created := make([]model.Category, 0, len(model.DefaultCategoryNames))
	for _, name := range model.DefaultCategoryNames {
		category, err := s.create(ctx, userID, name)
		if err != nil {
			return created, err
		}
		created = append(created, *category)
	}
	return created, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, userID uint, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrInvalidInput, "category name is required")
	}
	if len([]rune(name)) > maxCategoryNameLen {
		return nil, newError(ErrInvalidInput, fmt.Sprintf("category name must be at most %d characters", maxCategoryNameLen))
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, fmt.Sprintf("user %d not found", userID))
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return s.create(ctx, userID, name)
}

func (s *CategoryService) create(ctx context.Context, userID uint, name string) (*model.Category, error) {
	exists, err := s.categories.ExistsByUserAndName(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("check category: %w", err)
	}
	if exists {
		return nil, duplicateCategory(name)
	}

	category := &model.Category{UserID: userID, Name: name, CreatedAt: s.opts.now()}
	if err := s.categories.Create(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, duplicateCategory(name)
		case errors.Is(err, repository.ErrReference):
			return nil, newError(ErrNotFound, fmt.Sprintf("user %d not found", userID))
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// ListCategories returns the user's categories; an unknown user has none.
func (s *CategoryService) ListCategories(ctx context.Context, userID uint) ([]model.Category, error) {
	categories, err := s.categories.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []model.Category{}
	}
	return categories, nil
}

func duplicateCategory(name string) error {
	return newError(ErrDuplicateCategoryName, fmt.Sprintf("category %q already exists", name))
}
