package user

// Role-hierarchy access decisions. All checks are pure functions of the
// actor's and target's current state; target resolution stays in the service.
//
// Check ordering is uniform everywhere: self-action, then role gate
// (ErrAccessDenied), then target existence (ErrNotFound, in the service),
// then peer/above protection, then operation-specific conflicts. The role
// gate runs before any lookup so an unprivileged actor never learns whether
// a target exists.

// CanTargetOthers reports whether the actor may operate on records other
// than their own. Plain users may not, regardless of the target.
func CanTargetOthers(actor *User) error {
	if actor.Role == RoleUser {
		return ErrAccessDenied
	}
	return nil
}

// CanActOn decides whether actor may view or modify target's record.
// Acting on one's own record is always permitted. Otherwise the actor must
// strictly outrank the target: moderators reach plain users only, admins
// reach everyone below them.
func CanActOn(actor, target *User) error {
	if actor.ID == target.ID {
		return nil
	}
	if err := CanTargetOthers(actor); err != nil {
		return err
	}
	if !actor.Role.Outranks(target.Role) {
		return ErrAccessDenied
	}
	return nil
}

// CanPromote decides whether actor may promote target to moderator.
// Only admins promote; an admin target covers both self-promotion and
// promoting a fellow admin. Promoting a moderator again is a conflict.
func CanPromote(actor, target *User) error {
	if actor.Role != RoleAdmin {
		return ErrAccessDenied
	}
	if target.Role == RoleAdmin {
		return ErrSelfPromotion
	}
	if target.Role == RoleModerator {
		return ErrAlreadyModerator
	}
	return nil
}

// CanReactivate decides whether actor may reactivate a soft-deleted target.
// Requires moderator or admin; moderators cannot reactivate peers or admins.
func CanReactivate(actor, target *User) error {
	if !actor.Role.AtLeast(RoleModerator) {
		return ErrAccessDenied
	}
	if actor.Role == RoleModerator && target.Role.AtLeast(RoleModerator) {
		return ErrAccessDenied
	}
	if target.IsActive {
		return ErrAlreadyActive
	}
	return nil
}

// CanDelete decides whether actor may soft-delete target's account.
// Same hierarchy as CanActOn, with one carve-out: an admin deleting their
// own account is rejected so the last admin cannot lock everyone out.
func CanDelete(actor, target *User) error {
	if actor.ID == target.ID {
		if actor.Role == RoleAdmin {
			return ErrSelfDelete
		}
		return nil
	}
	return CanActOn(actor, target)
}
