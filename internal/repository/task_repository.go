package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"schedule-manager/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return mapError("create task", r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error)
}

// Save overwrites every column of an existing task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	return mapError("save task", r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error)
}

func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Category").First(&task, id).Error; err != nil {
		return nil, mapError("get task", err)
	}
	return &task, nil
}

// ListByUser returns the user's tasks with their categories, in insertion order.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uint) ([]model.Task, error) {
	tasks := []model.Task{}
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, mapError("list tasks", err)
	}
	return tasks, nil
}
