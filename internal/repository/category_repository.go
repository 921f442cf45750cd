package repository

import (
	"context"

	"gorm.io/gorm"

	"schedule-manager/internal/model"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	return mapError("create category", r.db.WithContext(ctx).Omit("Tasks").Create(category).Error)
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, mapError("get category", err)
	}
	return &category, nil
}

// ListByUser returns the user's categories in insertion order.
func (r *CategoryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	categories := []model.Category{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, mapError("list categories", err)
	}
	return categories, nil
}

func (r *CategoryRepository) ExistsByUserAndName(ctx context.Context, userID uint, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("user_id = ? AND name = ?", userID, name).
		Count(&count).Error; err != nil {
		return false, mapError("count categories", err)
	}
	return count > 0, nil
}
