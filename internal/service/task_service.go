package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"schedule-manager/internal/model"
	"schedule-manager/internal/repository"
)

const (
	maxTitleLen = 50
	// DateLayout is the accepted format of the date filter.
	DateLayout = "2006-01-02"
)

// TaskInput represents data required to create or replace a task.
type TaskInput struct {
	CategoryID  uint
	UserID      uint
	Title       string
	Description string
	// Priority and Status are labels; empty means normal and pending.
	Priority  string
	Status    string
	StartTime *time.Time
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks      TaskStore
	categories CategoryStore
	users      UserStore
	opts       options
}

func NewTaskService(tasks TaskStore, categories CategoryStore, users UserStore, opts ...Option) *TaskService {
	return &TaskService{tasks: tasks, categories: categories, users: users, opts: buildOptions(opts)}
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	task, err := s.buildTask(ctx, input)
	if err != nil {
		return nil, err
	}
	task.CreatedAt = s.opts.now()

	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrReference) {
			return nil, categoryNotFound(input.CategoryID)
		}
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.invalidateStats(ctx, task.UserID)
	return task, nil
}

// UpdateTask replaces every field of the task except its id and creation time.
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint, input TaskInput) (*model.Task, error) {
	existing, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, taskNotFound(taskID)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if existing.UserID != input.UserID {
		return nil, taskNotFound(taskID)
	}

	task, err := s.buildTask(ctx, input)
	if err != nil {
		return nil, err
	}
	task.ID = existing.ID
	task.CreatedAt = existing.CreatedAt

	if err := s.tasks.Save(ctx, task); err != nil {
		if errors.Is(err, repository.ErrReference) {
			return nil, categoryNotFound(input.CategoryID)
		}
		return nil, fmt.Errorf("save task: %w", err)
	}
	s.invalidateStats(ctx, task.UserID)
	return task, nil
}

// GetTask returns a task owned by userID.
func (s *TaskService) GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, taskNotFound(taskID)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.UserID != userID {
		return nil, taskNotFound(taskID)
	}
	return task, nil
}

func (s *TaskService) ListTasksByUser(ctx context.Context, userID uint) ([]model.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// ListTasksByUserAndDate returns tasks whose start time falls on date (YYYY-MM-DD).
// The calendar day of a start time is taken in the location it was stored with.
func (s *TaskService) ListTasksByUserAndDate(ctx context.Context, userID uint, date string) ([]model.Task, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, newError(ErrInvalidDate, fmt.Sprintf("date %q must be in YYYY-MM-DD format", date))
	}

	tasks, err := s.ListTasksByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	filtered := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.StartTime != nil && sameDay(*task.StartTime, day) {
			filtered = append(filtered, task)
		}
	}
	return filtered, nil
}

// buildTask validates input and resolves its owner and category.
func (s *TaskService) buildTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, newError(ErrInvalidInput, "title is required")
	}
	if len([]rune(title)) > maxTitleLen {
		return nil, newError(ErrInvalidInput, fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	}
	if input.StartTime == nil {
		return nil, newError(ErrInvalidInput, "start time is required")
	}

	priority := model.PriorityNormal
	if strings.TrimSpace(input.Priority) != "" {
		p, err := model.ParsePriority(input.Priority)
		if err != nil {
			return nil, newError(ErrInvalidInput, err.Error())
		}
		priority = p
	}
	status := model.StatusPending
	if strings.TrimSpace(input.Status) != "" {
		st, err := model.ParseStatus(input.Status)
		if err != nil {
			return nil, newError(ErrInvalidInput, err.Error())
		}
		status = st
	}

	if _, err := s.users.GetByID(ctx, input.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, fmt.Sprintf("user %d not found", input.UserID))
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, categoryNotFound(input.CategoryID)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category.UserID != input.UserID {
		return nil, categoryNotFound(input.CategoryID)
	}

	start := *input.StartTime
	return &model.Task{
		UserID:      input.UserID,
		CategoryID:  category.ID,
		Category:    *category,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		Status:      status,
		StartTime:   &start,
	}, nil
}

func (s *TaskService) invalidateStats(ctx context.Context, userID uint) {
	if s.opts.cache == nil {
		return
	}
	if err := s.opts.cache.Invalidate(ctx, userID); err != nil {
		s.opts.logger.Warn("invalidate stats cache", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func taskNotFound(id uint) error {
	return newError(ErrNotFound, fmt.Sprintf("task %d not found", id))
}

func categoryNotFound(id uint) error {
	return newError(ErrNotFound, fmt.Sprintf("category %d not found", id))
}
