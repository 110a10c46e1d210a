package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/isp-support/internal/auth"
	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/repository"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// UserService manages operator accounts.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	logger     *zap.Logger
	now        Clock
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	BcryptCost int
	Logger     *zap.Logger
	Clock      Clock
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	s := &UserService{users: deps.UserRepo, bcryptCost: deps.BcryptCost, logger: deps.Logger, now: deps.Clock}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// UserInput is the create payload.
type UserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.UserRole
	Status   domain.UserStatus
}

// UserPatch carries editable user fields. Nil means unchanged.
type UserPatch struct {
	Name   *string
	Role   *domain.UserRole
	Status *domain.UserStatus
}

// Create registers an operator. Emails are unique case-insensitively.
func (s *UserService) Create(ctx context.Context, input UserInput) (*domain.User, error) {
	if input.Role == "" {
		input.Role = domain.UserRoleAgent
	}
	if input.Status == "" {
		input.Status = domain.UserStatusActive
	}
	errs := fieldErrors{}
	errs.require("name", input.Name)
	errs.require("email", input.Email)
	if len(input.Password) < auth.MinPasswordLength {
		errs["password"] = "password must be at least 8 characters"
	}
	validateUserEnums(errs, &input.Role, &input.Status)
	if err := errs.err(); err != nil {
		return nil, err
	}

	email := normalizeEmail(input.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, duplicateEmail(email)
	} else if !isNoRows(err) {
		return nil, failure(s.logger, "get user", err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.now()
	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Status:       input.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, duplicateEmail(email)
		}
		return nil, failure(s.logger, "create user", err)
	}
	return user, nil
}

// List returns every operator except superadmins, ordered by name.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListOperators(ctx)
	if err != nil {
		return nil, failure(s.logger, "list users", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, failure(s.logger, "get user", notFound(err, "user", map[string]any{"id": id}))
	}
	return user, nil
}

// Update changes the name, role or status of a user.
func (s *UserService) Update(ctx context.Context, id int64, patch UserPatch) (*domain.User, error) {
	errs := fieldErrors{}
	if patch.Name != nil {
		errs.require("name", *patch.Name)
	}
	validateUserEnums(errs, patch.Role, patch.Status)
	if err := errs.err(); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Status != nil {
		user.Status = *patch.Status
	}
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, failure(s.logger, "update user", notFound(err, "user", map[string]any{"id": id}))
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator unless the email is taken.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !isNoRows(err) {
		return false, failure(s.logger, "get user", err)
	}
	if _, err := s.Create(ctx, UserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     domain.UserRoleAdmin,
		Status:   domain.UserStatusActive,
	}); err != nil {
		return false, err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", email))
	return true, nil
}

func validateUserEnums(errs fieldErrors, role *domain.UserRole, status *domain.UserStatus) {
	if role != nil {
		if _, ok := domain.ParseUserRole(string(*role)); !ok {
			errs["role"] = "role must be one of admin, supervisor, agent, technician"
		}
	}
	if status != nil {
		if _, ok := domain.ParseUserStatus(string(*status)); !ok {
			errs["status"] = "status must be active or inactive"
		}
	}
}

func duplicateEmail(email string) error {
	return apperrors.NewConflict("email already registered", map[string]any{"email": email})
}
