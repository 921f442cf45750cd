package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schedule-manager/internal/model"
	"schedule-manager/internal/repository"
)

type RepositorySuite struct {
	suite.Suite
	db         *gorm.DB
	users      *repository.UserRepository
	categories *repository.CategoryRepository
	tasks      *repository.TaskRepository
	ctx        context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	db, err := repository.NewDB(":memory:", zap.NewNop())
	s.Require().NoError(err)
	s.db = db
	s.users = repository.NewUserRepository(db)
	s.categories = repository.NewCategoryRepository(db)
	s.tasks = repository.NewTaskRepository(db)
	s.ctx = context.Background()
}

func (s *RepositorySuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (s *RepositorySuite) createUser(name string) *model.User {
	u := &model.User{UserName: name, Password: "hash", Email: name + "@example.com"}
	s.Require().NoError(s.users.Create(s.ctx, u))
	return u
}

func (s *RepositorySuite) createCategory(userID uint, name string) *model.Category {
	c := &model.Category{UserID: userID, Name: name}
	s.Require().NoError(s.categories.Create(s.ctx, c))
	return c
}

func (s *RepositorySuite) TestUserLookups() {
	u := s.createUser("alice")
	s.NotZero(u.ID)

	got, err := s.users.FindByUserName(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)

	exists, err := s.users.ExistsByUserName(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.users.ExistsByEmail(s.ctx, "nobody@example.com")
	s.Require().NoError(err)
	s.False(exists)

	_, err = s.users.GetByID(s.ctx, 999)
	s.ErrorIs(err, repository.ErrNotFound)

	_, err = s.users.FindByUserName(s.ctx, "bob")
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *RepositorySuite) TestUserUniqueness() {
	s.createUser("alice")

	err := s.users.Create(s.ctx, &model.User{UserName: "alice", Password: "x", Email: "other@example.com"})
	s.ErrorIs(err, repository.ErrDuplicate)

	err = s.users.Create(s.ctx, &model.User{UserName: "alice2", Password: "x", Email: "alice@example.com"})
	s.ErrorIs(err, repository.ErrDuplicate)
}

func (s *RepositorySuite) TestListByIDs() {
	a := s.createUser("alice")
	b := s.createUser("bob")

	users, err := s.users.ListByIDs(s.ctx, []uint{b.ID, a.ID, 42})
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal(a.ID, users[0].ID)

	users, err = s.users.ListByIDs(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(users)
}

func (s *RepositorySuite) TestCategoryUniquePerUser() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	s.createCategory(alice.ID, "Work")

	err := s.categories.Create(s.ctx, &model.Category{UserID: alice.ID, Name: "Work"})
	s.ErrorIs(err, repository.ErrDuplicate)

	s.createCategory(bob.ID, "Work")

	exists, err := s.categories.ExistsByUserAndName(s.ctx, alice.ID, "Work")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.categories.ExistsByUserAndName(s.ctx, alice.ID, "Home")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *RepositorySuite) TestCategoryRequiresUser() {
	err := s.categories.Create(s.ctx, &model.Category{UserID: 77, Name: "Orphan"})
	s.ErrorIs(err, repository.ErrReference)
}

func (s *RepositorySuite) TestListCategoriesOrderAndEmpty() {
	u := s.createUser("alice")

	list, err := s.categories.ListByUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.NotNil(list)
	s.Empty(list)

	s.createCategory(u.ID, "Personal")
	s.createCategory(u.ID, "Work")

	list, err = s.categories.ListByUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Personal", list[0].Name)
	s.Equal("Work", list[1].Name)
}

func (s *RepositorySuite) TestTaskCreateSaveAndPreload() {
	u := s.createUser("alice")
	work := s.createCategory(u.ID, "Work")
	home := s.createCategory(u.ID, "Home")
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	task := &model.Task{
		UserID:     u.ID,
		CategoryID: work.ID,
		Title:      "Write report",
		Priority:   model.PriorityHigh,
		Status:     model.StatusPending,
		StartTime:  &start,
		CreatedAt:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.tasks.Create(s.ctx, task))
	s.NotZero(task.ID)

	got, err := s.tasks.GetByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("Work", got.Category.Name)
	s.True(got.StartTime.Equal(start))

	got.CategoryID = home.ID
	got.Category = model.Category{}
	got.Status = model.StatusDone
	got.Description = ""
	s.Require().NoError(s.tasks.Save(s.ctx, got))

	again, err := s.tasks.GetByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("Home", again.Category.Name)
	s.Equal(model.StatusDone, again.Status)
	s.True(again.CreatedAt.Equal(task.CreatedAt))

	list, err := s.tasks.ListByUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("Home", list[0].CategoryName())

	_, err = s.tasks.GetByID(s.ctx, 12345)
	s.True(errors.Is(err, repository.ErrNotFound))
}

func (s *RepositorySuite) TestTaskRequiresCategory() {
	u := s.createUser("alice")
	err := s.tasks.Create(s.ctx, &model.Task{UserID: u.ID, CategoryID: 999, Title: "x", Status: model.StatusPending})
	s.ErrorIs(err, repository.ErrReference)
}

func (s *RepositorySuite) TestPing() {
	s.NoError(repository.Ping(s.ctx, s.db))
}
