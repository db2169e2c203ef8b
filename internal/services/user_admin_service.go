package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gamestore/internal/models"
	"gamestore/internal/repositories"
)

// UserAdminService lists users and manages their roles.
type UserAdminService struct {
	log   *slog.Logger
	users repositories.UserRepository
	tx    repositories.Transactor
}

// NewUserAdminService creates a new UserAdminService.
func NewUserAdminService(log *slog.Logger, users repositories.UserRepository, tx repositories.Transactor) *UserAdminService {
	return &UserAdminService{log: log, users: users, tx: tx}
}

func (s *UserAdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// SetRole replaces the user's role. Unknown roles and store failures are role-operation failures.
func (s *UserAdminService) SetRole(ctx context.Context, userID, role string) (*models.User, error) {
	const op = "services.UserAdminService.SetRole"
	if !knownRole(role) {
		return nil, &RoleOperationError{Op: fmt.Sprintf("to create role '%s'", role), Reason: "unknown role"}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		s.log.Error("role update failed", slog.String("op", op), slog.String("userID", userID), slog.Any("error", err))
		return nil, &RoleOperationError{Op: "adding role", Reason: err.Error()}
	}
	user.Role = role
	s.log.Info("role changed", slog.String("op", op), slog.String("userID", userID), slog.String("role", role))
	return user, nil
}

// DeleteUser removes the account and its cart. Orders stay in the ledger.
func (s *UserAdminService) DeleteUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "services.UserAdminService.DeleteUser"
	var deleted *models.User
	err := s.tx.Transaction(ctx, func(tx *repositories.Store) error {
		user, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Carts.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Users.Delete(ctx, userID); err != nil {
			return err
		}
		deleted = user
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted", slog.String("op", op), slog.String("userID", userID))
	return deleted, nil
}

func knownRole(role string) bool {
	for _, r := range models.Roles {
		if r == role {
			return true
		}
	}
	return false
}
