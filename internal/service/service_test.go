package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schedule-manager/internal/model"
	"schedule-manager/internal/repository"
	"schedule-manager/internal/service"
)

// ServiceSuite runs the services against an in-memory SQLite database.
type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	db         *gorm.DB
	taskRepo   *repository.TaskRepository
	users      *service.UserService
	categories *service.CategoryService
	tasks      *service.TaskService
	stats      *service.StatsService
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	db, err := repository.NewDB(":memory:", zap.NewNop())
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	s.taskRepo = repository.NewTaskRepository(db)

	clock := service.WithClock(fixedClock)
	s.categories = service.NewCategoryService(categoryRepo, userRepo, clock)
	s.users = service.NewUserService(userRepo, plainHasher{}, s.categories, clock)
	s.tasks = service.NewTaskService(s.taskRepo, categoryRepo, userRepo, clock)
	s.stats = service.NewStatsService(s.tasks, s.categories)
}

func (s *ServiceSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *ServiceSuite) register(name string) *model.User {
	u, err := s.users.Register(s.ctx, service.RegisterInput{UserName: name, Password: "pw", Email: name + "@example.com"})
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) categoryID(userID uint, name string) uint {
	list, err := s.categories.ListCategories(s.ctx, userID)
	s.Require().NoError(err)
	for _, c := range list {
		if c.Name == name {
			return c.ID
		}
	}
	s.FailNow("category not found", name)
	return 0
}

func at(day, hour int) *time.Time {
	t := time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func (s *ServiceSuite) TestRegisterDuplicateUserNameKeepsSingleUser() {
	s.register("alice")

	_, err := s.users.Register(s.ctx, service.RegisterInput{UserName: "alice", Password: "x", Email: "other@example.com"})
	s.ErrorIs(err, service.ErrDuplicateUserName)

	var count int64
	s.Require().NoError(s.db.Model(&model.User{}).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *ServiceSuite) TestRegisterDuplicateEmail() {
	s.register("alice")
	_, err := s.users.Register(s.ctx, service.RegisterInput{UserName: "bob", Password: "x", Email: "alice@example.com"})
	s.ErrorIs(err, service.ErrDuplicateEmail)
}

func (s *ServiceSuite) TestRegisterCreatesDefaultCategories() {
	u := s.register("alice")

	list, err := s.categories.ListCategories(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("Personal", list[0].Name)
	s.Equal("Work", list[1].Name)
	s.Equal("Grocery List", list[2].Name)
	for _, c := range list {
		s.Equal(u.ID, c.UserID)
		s.True(c.CreatedAt.Equal(fixedNow))
	}
}

func (s *ServiceSuite) TestDefaultCategoriesAreNotIdempotent() {
	u := s.register("alice")
	_, err := s.categories.CreateDefaultCategories(s.ctx, u.ID)
	s.ErrorIs(err, service.ErrDuplicateCategoryName)
}

func (s *ServiceSuite) TestLoginAgainstStoredUser() {
	s.register("alice")

	u, err := s.users.Login(s.ctx, "alice", "pw")
	s.Require().NoError(err)
	s.Equal("alice", u.UserName)

	_, err = s.users.Login(s.ctx, "alice", "bad")
	s.ErrorIs(err, service.ErrInvalidCredentials)
	_, err = s.users.Login(s.ctx, "nobody", "pw")
	s.ErrorIs(err, service.ErrInvalidCredentials)
}

func (s *ServiceSuite) TestCreateCategory() {
	alice := s.register("alice")
	bob := s.register("bob")

	c, err := s.categories.CreateCategory(s.ctx, alice.ID, " Home ")
	s.Require().NoError(err)
	s.Equal("Home", c.Name)
	s.NotZero(c.ID)

	_, err = s.categories.CreateCategory(s.ctx, alice.ID, "Home")
	s.ErrorIs(err, service.ErrDuplicateCategoryName)

	_, err = s.categories.CreateCategory(s.ctx, bob.ID, "Home")
	s.NoError(err)

	_, err = s.categories.CreateCategory(s.ctx, 999, "Home")
	s.ErrorIs(err, service.ErrNotFound)

	_, err = s.categories.CreateCategory(s.ctx, alice.ID, "   ")
	s.ErrorIs(err, service.ErrInvalidInput)
}

func (s *ServiceSuite) TestListCategoriesIsStable() {
	u := s.register("alice")
	first, err := s.categories.ListCategories(s.ctx, u.ID)
	s.Require().NoError(err)
	second, err := s.categories.ListCategories(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(first, second)

	empty, err := s.categories.ListCategories(s.ctx, 12345)
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)
}

func (s *ServiceSuite) TestCreateTask() {
	u := s.register("alice")
	work := s.categoryID(u.ID, "Work")

	task, err := s.tasks.CreateTask(s.ctx, service.TaskInput{
		CategoryID: work,
		UserID:     u.ID,
		Title:      "Write report",
		Priority:   "High",
		Status:     "in_progress",
		StartTime:  at(1, 9),
	})
	s.Require().NoError(err)
	s.NotZero(task.ID)
	s.Equal(model.PriorityHigh, task.Priority)
	s.Equal(model.StatusInProgress, task.Status)
	s.Equal("Work", task.CategoryName())
	s.True(task.CreatedAt.Equal(fixedNow))

	defaults, err := s.tasks.CreateTask(s.ctx, service.TaskInput{CategoryID: work, UserID: u.ID, Title: "x", StartTime: at(1, 10)})
	s.Require().NoError(err)
	s.Equal(model.PriorityNormal, defaults.Priority)
	s.Equal(model.StatusPending, defaults.Status)
}

func (s *ServiceSuite) TestCreateTaskRejectsBadInput() {
	alice := s.register("alice")
	bob := s.register("bob")
	work := s.categoryID(alice.ID, "Work")
	bobsWork := s.categoryID(bob.ID, "Work")

	tests := []struct {
		name  string
		input service.TaskInput
		kind  error
	}{
		{"empty title", service.TaskInput{CategoryID: work, UserID: alice.ID, Title: " ", StartTime: at(1, 9)}, service.ErrInvalidInput},
		{"long title", service.TaskInput{CategoryID: work, UserID: alice.ID, Title: "0123456789012345678901234567890123456789012345678901", StartTime: at(1, 9)}, service.ErrInvalidInput},
		{"missing start", service.TaskInput{CategoryID: work, UserID: alice.ID, Title: "t"}, service.ErrInvalidInput},
		{"bad priority", service.TaskInput{CategoryID: work, UserID: alice.ID, Title: "t", Priority: "urgent", StartTime: at(1, 9)}, service.ErrInvalidInput},
		{"bad status", service.TaskInput{CategoryID: work, UserID: alice.ID, Title: "t", Status: "archived", StartTime: at(1, 9)}, service.ErrInvalidInput},
		{"unknown user", service.TaskInput{CategoryID: work, UserID: 999, Title: "t", StartTime: at(1, 9)}, service.ErrNotFound},
		{"unknown category", service.TaskInput{CategoryID: 999, UserID: alice.ID, Title: "t", StartTime: at(1, 9)}, service.ErrNotFound},
		{"foreign category", service.TaskInput{CategoryID: bobsWork, UserID: alice.ID, Title: "t", StartTime: at(1, 9)}, service.ErrNotFound},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.tasks.CreateTask(s.ctx, tt.input)
			s.ErrorIs(err, tt.kind)
		})
	}
}

func (s *ServiceSuite) TestUpdateTaskReplacesEverythingButIdentity() {
	u := s.register("alice")
	work := s.categoryID(u.ID, "Work")
	personal := s.categoryID(u.ID, "Personal")

	created, err := s.tasks.CreateTask(s.ctx, service.TaskInput{
		CategoryID: work, UserID: u.ID, Title: "Draft", Description: "first pass",
		Priority: "low", Status: "pending", StartTime: at(1, 9),
	})
	s.Require().NoError(err)

	updated, err := s.tasks.UpdateTask(s.ctx, created.ID, service.TaskInput{
		CategoryID: personal, UserID: u.ID, Title: "Final",
		Priority: "important", Status: "done", StartTime: at(2, 14),
	})
	s.Require().NoError(err)
	s.Equal(created.ID, updated.ID)
	s.True(updated.CreatedAt.Equal(created.CreatedAt))

	stored, err := s.tasks.GetTask(s.ctx, u.ID, created.ID)
	s.Require().NoError(err)
	s.Equal("Final", stored.Title)
	s.Empty(stored.Description)
	s.Equal(model.PriorityImportant, stored.Priority)
	s.Equal(model.StatusDone, stored.Status)
	s.Equal("Personal", stored.CategoryName())
	s.True(stored.StartTime.Equal(*at(2, 14)))
	s.True(stored.CreatedAt.Equal(fixedNow))
}

func (s *ServiceSuite) TestUpdateTaskNotFound() {
	alice := s.register("alice")
	bob := s.register("bob")
	work := s.categoryID(alice.ID, "Work")

	created, err := s.tasks.CreateTask(s.ctx, service.TaskInput{CategoryID: work, UserID: alice.ID, Title: "t", StartTime: at(1, 9)})
	s.Require().NoError(err)

	_, err = s.tasks.UpdateTask(s.ctx, 999, service.TaskInput{CategoryID: work, UserID: alice.ID, Title: "t", StartTime: at(1, 9)})
	s.ErrorIs(err, service.ErrNotFound)

	_, err = s.tasks.UpdateTask(s.ctx, created.ID, service.TaskInput{CategoryID: s.categoryID(bob.ID, "Work"), UserID: bob.ID, Title: "mine", StartTime: at(1, 9)})
	s.ErrorIs(err, service.ErrNotFound)

	_, err = s.tasks.GetTask(s.ctx, bob.ID, created.ID)
	s.ErrorIs(err, service.ErrNotFound)
}

func (s *ServiceSuite) TestListTasksByUserAndDate() {
	u := s.register("alice")
	work := s.categoryID(u.ID, "Work")

	for _, in := range []service.TaskInput{
		{CategoryID: work, UserID: u.ID, Title: "morning", StartTime: at(1, 9)},
		{CategoryID: work, UserID: u.ID, Title: "late", StartTime: at(1, 23)},
		{CategoryID: work, UserID: u.ID, Title: "tomorrow", StartTime: at(2, 0)},
	} {
		_, err := s.tasks.CreateTask(s.ctx, in)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.taskRepo.Create(s.ctx, &model.Task{
		UserID: u.ID, CategoryID: work, Title: "legacy", Status: model.StatusPending, CreatedAt: fixedNow,
	}))

	day, err := s.tasks.ListTasksByUserAndDate(s.ctx, u.ID, "2024-03-01")
	s.Require().NoError(err)
	s.Require().Len(day, 2)
	s.Equal("morning", day[0].Title)
	s.Equal("late", day[1].Title)

	none, err := s.tasks.ListTasksByUserAndDate(s.ctx, u.ID, "2024-03-05")
	s.Require().NoError(err)
	s.Empty(none)

	all, err := s.tasks.ListTasksByUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Len(all, 4)

	_, err = s.tasks.ListTasksByUserAndDate(s.ctx, u.ID, "03/01/2024")
	s.ErrorIs(err, service.ErrInvalidDate)
}

func (s *ServiceSuite) TestListTasksByUserAndDateUsesStoredZone() {
	u := s.register("alice")
	work := s.categoryID(u.ID, "Work")
	ict := time.FixedZone("ICT", 7*3600)

	lateEvening := time.Date(2024, 3, 15, 23, 30, 0, 0, ict)
	earlyMorning := time.Date(2024, 3, 16, 1, 0, 0, 0, ict)
	for _, in := range []service.TaskInput{
		{CategoryID: work, UserID: u.ID, Title: "late evening", StartTime: &lateEvening},
		{CategoryID: work, UserID: u.ID, Title: "early morning", StartTime: &earlyMorning},
	} {
		_, err := s.tasks.CreateTask(s.ctx, in)
		s.Require().NoError(err)
	}

	fifteenth, err := s.tasks.ListTasksByUserAndDate(s.ctx, u.ID, "2024-03-15")
	s.Require().NoError(err)
	s.Require().Len(fifteenth, 1)
	s.Equal("late evening", fifteenth[0].Title)

	sixteenth, err := s.tasks.ListTasksByUserAndDate(s.ctx, u.ID, "2024-03-16")
	s.Require().NoError(err)
	s.Require().Len(sixteenth, 1)
	s.Equal("early morning", sixteenth[0].Title)
}

func (s *ServiceSuite) TestAggregationAndOverview() {
	u := s.register("alice")
	work := s.categoryID(u.ID, "Work")
	home, err := s.categories.CreateCategory(s.ctx, u.ID, "Home")
	s.Require().NoError(err)

	for _, in := range []service.TaskInput{
		{CategoryID: work, UserID: u.ID, Title: "a", Status: "pending", StartTime: at(1, 9)},
		{CategoryID: work, UserID: u.ID, Title: "b", Status: "done", StartTime: at(1, 9)},
		{CategoryID: home.ID, UserID: u.ID, Title: "c", Status: "in_progress", StartTime: at(1, 9)},
	} {
		_, err := s.tasks.CreateTask(s.ctx, in)
		s.Require().NoError(err)
	}

	counts, err := s.stats.CountByCategoryAndStatus(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(model.CategoryCounts{
		"Work": {"pending": 1, "done": 1, "in_progress": 0},
		"Home": {"pending": 0, "done": 0, "in_progress": 1},
	}, counts)

	charts, err := s.stats.StatisticsForCharts(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(counts, charts)

	overview, err := s.stats.CategoryOverview(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(overview, 4)
	s.Equal("Personal", overview[0].Category.Name)
	s.Equal(model.NewStatusCounts(), overview[0].Counts)
	s.Equal("Home", overview[3].Category.Name)
	s.Equal(1, overview[3].Counts["in_progress"])
}
