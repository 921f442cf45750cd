package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"schedule-manager/internal/model"
	"schedule-manager/internal/repository"
)

const (
	maxUserNameLen = 50
	maxEmailLen    = 255
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	UserName string
	Password string
	Email    string
}

// UserService registers and authenticates users.
type UserService struct {
	users      UserStore
	hasher     PasswordHasher
	categories DefaultCategoryCreator
	opts       options

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(users UserStore, hasher PasswordHasher, categories DefaultCategoryCreator, opts ...Option) *UserService {
	return &UserService{
		users:      users,
		hasher:     hasher,
		categories: categories,
		opts:       buildOptions(opts),
	}
}

// Register creates an account and its default categories.
// If the categories cannot be created the account is kept and the error is returned.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	userName := strings.TrimSpace(in.UserName)
	email := strings.TrimSpace(in.Email)
	if err := validateRegistration(userName, in.Password, email); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByUserName(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("check user name: %w", err)
	}
	if taken {
		return nil, duplicateUserName(userName)
	}
	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, duplicateEmail(email)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	user := &model.User{
		UserName:  userName,
		Password:  hash,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.resolveConflict(ctx, userName, email, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if _, err := s.categories.CreateDefaultCategories(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("create default categories for user %d: %w", user.ID, err)
	}

	return user, nil
}

// resolveConflict picks the duplicate kind after a concurrent insert won the race.
func (s *UserService) resolveConflict(ctx context.Context, userName, email string, cause error) error {
	if taken, err := s.users.ExistsByUserName(ctx, userName); err == nil && taken {
		return duplicateUserName(userName)
	}
	if taken, err := s.users.ExistsByEmail(ctx, email); err == nil && taken {
		return duplicateEmail(email)
	}
	return fmt.Errorf("create user: %w", cause)
}

// Login returns the user when the credentials match. Unknown users and wrong
// passwords produce the same error.
func (s *UserService) Login(ctx context.Context, userName, password string) (*model.User, error) {
	user, err := s.users.FindByUserName(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Verify(password, s.fallbackHash())
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(password, user.Password) {
		return nil, invalidCredentials()
	}
	return user, nil
}

// fallbackHash is compared against when the user does not exist so both
// failure paths do the same amount of hashing work.
func (s *UserService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("schedule-manager-login")
		if err != nil {
			s.opts.logger.Warn("build fallback hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func validateRegistration(userName, password, email string) error {
	switch {
	case userName == "":
		return newError(ErrInvalidInput, "user name is required")
	case len([]rune(userName)) > maxUserNameLen:
		return newError(ErrInvalidInput, fmt.Sprintf("user name must be at most %d characters", maxUserNameLen))
	case password == "":
		return newError(ErrInvalidInput, "password is required")
	case len(password) > maxPasswordLen:
		return newError(ErrInvalidInput, fmt.Sprintf("password must be at most %d bytes", maxPasswordLen))
	case email == "":
		return newError(ErrInvalidInput, "email is required")
	case len([]rune(email)) > maxEmailLen:
		return newError(ErrInvalidInput, fmt.Sprintf("email must be at most %d characters", maxEmailLen))
	}
	return nil
}

func duplicateUserName(userName string) error {
	return newError(ErrDuplicateUserName, fmt.Sprintf("user name %q is already taken", userName))
}

func duplicateEmail(email string) error {
	return newError(ErrDuplicateEmail, fmt.Sprintf("email %q is already registered", email))
}

func invalidCredentials() error {
	return newError(ErrInvalidCredentials, "invalid user name or password")
}
