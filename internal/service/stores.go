package service

import (
	"context"

	"schedule-manager/internal/model"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	FindByUserName(ctx context.Context, userName string) (*model.User, error)
	ExistsByUserName(ctx context.Context, userName string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type CategoryStore interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id uint) (*model.Category, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Category, error)
	ExistsByUserAndName(ctx context.Context, userID uint, name string) (bool, error)
}

type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	// Save overwrites every column of an existing task.
	Save(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uint) (*model.Task, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Task, error)
}

// PasswordHasher is a one-way credential hash.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// DefaultCategoryCreator bootstraps the categories of a freshly registered user.
type DefaultCategoryCreator interface {
	CreateDefaultCategories(ctx context.Context, userID uint) ([]model.Category, error)
}

// StatsCache is an optional store for aggregated counts.
type StatsCache interface {
	Get(ctx context.Context, userID uint) (model.CategoryCounts, error)
	Version(ctx context.Context, userID uint) (int64, error)
	Set(ctx context.Context, userID uint, version int64, counts model.CategoryCounts) error
	Invalidate(ctx context.Context, userID uint) error
}
