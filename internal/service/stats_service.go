package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"schedule-manager/internal/model"
)

// TaskLister lists every task of a user with categories resolved.
type TaskLister interface {
	ListTasksByUser(ctx context.Context, userID uint) ([]model.Task, error)
}

type CategoryLister interface {
	ListCategories(ctx context.Context, userID uint) ([]model.Category, error)
}

// CategorySummary is a category together with its task counts.
type CategorySummary struct {
	Category model.Category
	Counts   model.StatusCounts
}

// StatsService aggregates task counts per category and status.
type StatsService struct {
	tasks      TaskLister
	categories CategoryLister
	opts       options
	sf         singleflight.Group
}

func NewStatsService(tasks TaskLister, categories CategoryLister, opts ...Option) *StatsService {
	return &StatsService{tasks: tasks, categories: categories, opts: buildOptions(opts)}
}

// GroupByCategoryAndStatus counts tasks per category name and status.
// Every category that has a task gets all three statuses, zero-filled.
// Statuses outside the known set are not counted.
func GroupByCategoryAndStatus(tasks []model.Task) model.CategoryCounts {
	result := make(model.CategoryCounts)
	for _, task := range tasks {
		name := task.CategoryName()
		counts, ok := result[name]
		if !ok {
			counts = model.NewStatusCounts()
			result[name] = counts
		}
		if _, known := counts[string(task.Status)]; known {
			counts[string(task.Status)]++
		}
	}
	return result
}

// CountByCategoryAndStatus returns the user's counts. The result must not be modified.
func (s *StatsService) CountByCategoryAndStatus(ctx context.Context, userID uint) (model.CategoryCounts, error) {
	if s.opts.cache == nil {
		return s.aggregate(ctx, userID)
	}

	key := strconv.FormatUint(uint64(userID), 10)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		cached, err := s.opts.cache.Get(ctx, userID)
		if err != nil {
			s.opts.logger.Warn("read stats cache", zap.Uint("user_id", userID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}

		version, verr := s.opts.cache.Version(ctx, userID)
		if verr != nil {
			s.opts.logger.Warn("read stats cache version", zap.Uint("user_id", userID), zap.Error(verr))
		}

		counts, err := s.aggregate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if verr == nil {
			if err := s.opts.cache.Set(ctx, userID, version, counts); err != nil {
				s.opts.logger.Warn("write stats cache", zap.Uint("user_id", userID), zap.Error(err))
			}
		}
		return counts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(model.CategoryCounts), nil
}

// StatisticsForCharts feeds chart views; it is the same data as CountByCategoryAndStatus.
func (s *StatsService) StatisticsForCharts(ctx context.Context, userID uint) (model.CategoryCounts, error) {
	return s.CountByCategoryAndStatus(ctx, userID)
}

// CategoryOverview lists every category of the user with its counts.
// Categories without tasks report zeros.
func (s *StatsService) CategoryOverview(ctx context.Context, userID uint) ([]CategorySummary, error) {
	categories, err := s.categories.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.CountByCategoryAndStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]CategorySummary, 0, len(categories))
	for _, category := range categories {
		c, ok := counts[category.Name]
		if !ok {
			c = model.NewStatusCounts()
		}
		summaries = append(summaries, CategorySummary{Category: category, Counts: c})
	}
	return summaries, nil
}

func (s *StatsService) aggregate(ctx context.Context, userID uint) (model.CategoryCounts, error) {
	tasks, err := s.tasks.ListTasksByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return GroupByCategoryAndStatus(tasks), nil
}
