package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/formation-admin-api/internal/models"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
)

type userCacheInvalidator interface {
	InvalidateAllTrainers(ctx context.Context) error
}

type userRepository interface {
	List(ctx context.Context) ([]models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email     string        `json:"email" validate:"required,email"`
	FirstName string        `json:"first_name" validate:"required"`
	LastName  string        `json:"last_name" validate:"required"`
	Password  string        `json:"password" validate:"required,min=6"`
	Roles     []models.Role `json:"roles" validate:"required,min=1,dive,oneof=ROLE_FORMATEUR ROLE_COORDINATEUR ROLE_ADMIN"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	cache     userCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService. cache may be nil.
func NewUserService(repo userRepository, cache userCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// AllUsers returns every user.
func (s *UserService) AllUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list users")
	}
	return users, nil
}

// AllTrainers returns users holding the trainer role, whatever other roles they hold.
func (s *UserService) AllTrainers(ctx context.Context) ([]models.User, error) {
	return s.byRole(ctx, models.RoleTrainer)
}

// AllCoordinators returns users holding the coordinator role.
func (s *UserService) AllCoordinators(ctx context.Context) ([]models.User, error) {
	return s.byRole(ctx, models.RoleCoordinator)
}

func (s *UserService) byRole(ctx context.Context, role models.Role) ([]models.User, error) {
	users, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list users by role")
	}
	return users, nil
}

// Create registers a user with a hashed password.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.Email = models.NormalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid user payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	roles := make(models.RoleList, 0, len(req.Roles))
	for _, role := range req.Roles {
		if !roles.Has(role) {
			roles = append(roles, role)
		}
	}
	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Roles:        roles,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Storage(err, "failed to create user")
	}
	s.logger.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

// DeleteUser removes a user. Sessions the user taught lose it from their trainer set.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Storage(err, "failed to delete user")
	}
	if s.cache != nil {
		if err := s.cache.InvalidateAllTrainers(ctx); err != nil {
			s.logger.Warn("failed to invalidate trainer sessions cache", zap.String("user_id", id), zap.Error(err))
		}
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}
