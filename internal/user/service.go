package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tastebook/tastebook/internal/logging"
)

// Store is the persistence boundary the user service depends on.
type Store interface {
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindAnyByIdentifier(ctx context.Context, identifier string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
}

// Service handles profile management and the moderation operations layered
// on the role hierarchy.
type Service struct {
	repo   Store
	logger *logging.Logger
}

func NewService(repo Store, logger *logging.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// resolveTarget maps an optional target identifier onto the record an
// operation acts on. An empty identifier, or one naming the actor by
// username or email, is a self-action and never gated. The role gate runs
// before the lookup, so an actor without the privilege to target others
// cannot probe which identifiers exist.
func (s *Service) resolveTarget(ctx context.Context, actor *User, targetUsername string) (*User, error) {
	if targetUsername == "" || actor.Matches(targetUsername) {
		return actor, nil
	}

	if err := CanTargetOthers(actor); err != nil {
		return nil, err
	}

	target, err := s.repo.FindByIdentifier(ctx, targetUsername)
	if err != nil {
		return nil, err
	}

	if err := CanActOn(actor, target); err != nil {
		return nil, err
	}

	return target, nil
}

// GetProfile returns the actor's own record, or another user's when the
// hierarchy allows it.
func (s *Service) GetProfile(ctx context.Context, actor *User, targetUsername string) (*User, error) {
	return s.resolveTarget(ctx, actor, targetUsername)
}

// UpdateProfile applies a partial profile update to the resolved target.
func (s *Service) UpdateProfile(ctx context.Context, actor *User, targetUsername string, update ProfileUpdate) (*User, error) {
	if update.IsEmpty() {
		return nil, ErrNoFields
	}

	target, err := s.resolveTarget(ctx, actor, targetUsername)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProfile(ctx, target.ID, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "user_id", target.ID, "actor_id", actor.ID)
	return updated, nil
}

// DeleteAccount soft-deletes the resolved target and revokes its session.
// An admin cannot delete their own account.
func (s *Service) DeleteAccount(ctx context.Context, actor *User, targetUsername string) error {
	target, err := s.resolveTarget(ctx, actor, targetUsername)
	if err != nil {
		return err
	}

	if err := CanDelete(actor, target); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, target.ID); err != nil {
		return err
	}

	s.logger.Info("account deactivated", "user_id", target.ID, "actor_id", actor.ID)
	return nil
}

// PromoteToModerator raises the target to the moderator role. Admin only.
func (s *Service) PromoteToModerator(ctx context.Context, actor *User, identifier string) (*User, error) {
	if actor.Role != RoleAdmin {
		return nil, ErrAccessDenied
	}

	target, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := CanPromote(actor, target); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, target.ID, RoleModerator); err != nil {
		return nil, fmt.Errorf("failed to promote user: %w", err)
	}
	target.Role = RoleModerator

	s.logger.Info("user promoted to moderator", "user_id", target.ID, "actor_id", actor.ID)
	return target, nil
}

// ReactivateUser restores a soft-deleted account. Moderator or above; a
// moderator cannot reach a fellow moderator or an admin.
func (s *Service) ReactivateUser(ctx context.Context, actor *User, identifier string) (*User, error) {
	if !actor.Role.AtLeast(RoleModerator) {
		return nil, ErrAccessDenied
	}

	target, err := s.repo.FindAnyByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := CanReactivate(actor, target); err != nil {
		return nil, err
	}

	if err := s.repo.Reactivate(ctx, target.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to reactivate user: %w", err)
	}
	target.IsActive = true

	s.logger.Info("user reactivated", "user_id", target.ID, "actor_id", actor.ID)
	return target, nil
}
