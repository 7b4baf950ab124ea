package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bahafit/internal/auth"
	"bahafit/internal/cache"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
	"bahafit/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserUpdate carries the account fields an admin may change.
type UserUpdate struct {
	Role     *model.Role `json:"role,omitempty"`
	IsActive *bool       `json:"isActive,omitempty"`
}

// UserService exposes admin account management.
type UserService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateUser(ctx context.Context, actor *auth.Identity, id uuid.UUID, update UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, actor *auth.Identity, id uuid.UUID) error
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
	log   *zap.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client, log *zap.Logger) UserService {
	return &userService{repo: repo, cache: cache, log: log}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	_ = s.cache.SetJSON(ctx, s.cacheKey(id), user, userCacheTTL)
	return user, nil
}

// UpdateUser changes role and active flag. Admins cannot demote or
// deactivate themselves. The change reaches the user's next request because
// sessions are re-read from the store.
func (s *userService) UpdateUser(ctx context.Context, actor *auth.Identity, id uuid.UUID, update UserUpdate) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	if update.Role != nil {
		role := *update.Role
		if role != model.RoleAdmin && role != model.RoleUser {
			return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidationFailed, role)
		}
		if actor.ID == id && role != model.RoleAdmin {
			return nil, fmt.Errorf("%w: you cannot remove your own admin role", apperrors.ErrValidationFailed)
		}
		if err := s.repo.UpdateRole(ctx, id, role); err != nil {
			return nil, fmt.Errorf("update role: %w", err)
		}
		user.Role = role
	}
	if update.IsActive != nil {
		if actor.ID == id && !*update.IsActive {
			return nil, fmt.Errorf("%w: you cannot deactivate your own account", apperrors.ErrValidationFailed)
		}
		if err := s.repo.SetActive(ctx, id, *update.IsActive); err != nil {
			return nil, fmt.Errorf("update active flag: %w", err)
		}
		user.IsActive = *update.IsActive
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	s.log.Info("user updated",
		zap.String("user_id", id.String()),
		zap.String("by", actor.ID.String()),
		zap.String("role", string(user.Role)),
		zap.Bool("active", user.IsActive),
	)
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor *auth.Identity, id uuid.UUID) error {
	if actor.ID == id {
		return fmt.Errorf("%w: you cannot delete your own account", apperrors.ErrValidationFailed)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	s.log.Info("user deleted", zap.String("user_id", id.String()), zap.String("by", actor.ID.String()))
	return nil
}
