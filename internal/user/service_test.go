package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebook/tastebook/internal/logging"
)

type mockStore struct {
	findByIdentifierFn    func(ctx context.Context, identifier string) (*User, error)
	findAnyByIdentifierFn func(ctx context.Context, identifier string) (*User, error)
	updateProfileFn       func(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error)
	updateRoleFn          func(ctx context.Context, id uuid.UUID, role Role) error
	deactivateFn          func(ctx context.Context, id uuid.UUID) error
	reactivateFn          func(ctx context.Context, id uuid.UUID) error

	lookups int
}

func (m *mockStore) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	m.lookups++
	if m.findByIdentifierFn == nil {
		return nil, ErrNotFound
	}
	return m.findByIdentifierFn(ctx, identifier)
}

func (m *mockStore) FindAnyByIdentifier(ctx context.Context, identifier string) (*User, error) {
	m.lookups++
	if m.findAnyByIdentifierFn == nil {
		return nil, ErrNotFound
	}
	return m.findAnyByIdentifierFn(ctx, identifier)
}

func (m *mockStore) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
	return m.updateProfileFn(ctx, id, update)
}

func (m *mockStore) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	if m.updateRoleFn == nil {
		return nil
	}
	return m.updateRoleFn(ctx, id, role)
}

func (m *mockStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	if m.deactivateFn == nil {
		return nil
	}
	return m.deactivateFn(ctx, id)
}

func (m *mockStore) Reactivate(ctx context.Context, id uuid.UUID) error {
	if m.reactivateFn == nil {
		return nil
	}
	return m.reactivateFn(ctx, id)
}

func newTestService(store *mockStore) *Service {
	return NewService(store, logging.NewLogger(true))
}

func namedUser(username string, role Role) *User {
	return &User{ID: uuid.New(), Username: username, Role: role, IsActive: true}
}

func storeWith(users ...*User) *mockStore {
	find := func(ctx context.Context, identifier string) (*User, error) {
		for _, u := range users {
			if u.Matches(identifier) {
				return u, nil
			}
		}
		return nil, ErrNotFound
	}
	return &mockStore{
		findByIdentifierFn:    find,
		findAnyByIdentifierFn: find,
	}
}

func TestGetProfileSelf(t *testing.T) {
	actor := namedUser("alice", RoleUser)
	actor.Email = "alice@example.com"
	store := &mockStore{}
	svc := newTestService(store)

	got, err := svc.GetProfile(context.Background(), actor, "")
	require.NoError(t, err)
	assert.Same(t, actor, got)

	// Naming yourself, by username or email, is the same as naming nobody.
	got, err = svc.GetProfile(context.Background(), actor, "alice")
	require.NoError(t, err)
	assert.Same(t, actor, got)

	got, err = svc.GetProfile(context.Background(), actor, "alice@example.com")
	require.NoError(t, err)
	assert.Same(t, actor, got)

	assert.Zero(t, store.lookups, "self-actions must not hit the store")
}

func TestSelfTargetByEmailOnMutations(t *testing.T) {
	actor := namedUser("alice", RoleUser)
	actor.Email = "alice@example.com"
	first := "Alice"

	store := &mockStore{
		updateProfileFn: func(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
			assert.Equal(t, actor.ID, id)
			return actor, nil
		},
	}
	svc := newTestService(store)

	_, err := svc.UpdateProfile(context.Background(), actor, "alice@example.com", ProfileUpdate{FirstName: &first})
	require.NoError(t, err)

	var deactivated uuid.UUID
	store.deactivateFn = func(ctx context.Context, id uuid.UUID) error {
		deactivated = id
		return nil
	}

	require.NoError(t, svc.DeleteAccount(context.Background(), actor, "alice@example.com"))
	assert.Equal(t, actor.ID, deactivated)
}

func TestGetProfileRoleGateRunsBeforeLookup(t *testing.T) {
	actor := namedUser("alice", RoleUser)
	store := &mockStore{}
	svc := newTestService(store)

	_, err := svc.GetProfile(context.Background(), actor, "whoever")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Zero(t, store.lookups, "a plain user must not trigger a target lookup")
}

func TestGetProfileTargetNotFound(t *testing.T) {
	actor := namedUser("mod", RoleModerator)
	svc := newTestService(storeWith())

	_, err := svc.GetProfile(context.Background(), actor, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProfileHierarchy(t *testing.T) {
	target := namedUser("bob", RoleUser)
	peer := namedUser("otherMod", RoleModerator)
	admin := namedUser("root", RoleAdmin)
	store := storeWith(target, peer, admin)

	t.Run("moderator reads user", func(t *testing.T) {
		got, err := newTestService(store).GetProfile(context.Background(), namedUser("mod", RoleModerator), "bob")
		require.NoError(t, err)
		assert.Same(t, target, got)
	})

	t.Run("moderator cannot read peer", func(t *testing.T) {
		_, err := newTestService(store).GetProfile(context.Background(), namedUser("mod", RoleModerator), "otherMod")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("moderator cannot read admin", func(t *testing.T) {
		_, err := newTestService(store).GetProfile(context.Background(), namedUser("mod", RoleModerator), "root")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("admin reads moderator", func(t *testing.T) {
		got, err := newTestService(store).GetProfile(context.Background(), namedUser("boss", RoleAdmin), "otherMod")
		require.NoError(t, err)
		assert.Same(t, peer, got)
	})
}

func TestUpdateProfileRequiresFields(t *testing.T) {
	actor := namedUser("alice", RoleUser)
	svc := newTestService(&mockStore{})

	_, err := svc.UpdateProfile(context.Background(), actor, "", ProfileUpdate{})
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestUpdateProfileSelf(t *testing.T) {
	actor := namedUser("alice", RoleUser)
	first := "Alice"

	store := &mockStore{
		updateProfileFn: func(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
			assert.Equal(t, actor.ID, id)
			actor.FirstName = update.FirstName
			return actor, nil
		},
	}
	svc := newTestService(store)

	got, err := svc.UpdateProfile(context.Background(), actor, "", ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
	require.NotNil(t, got.FirstName)
	assert.Equal(t, "Alice", *got.FirstName)
}

func TestDeleteAccountSelf(t *testing.T) {
	actor := namedUser("alice", RoleUser)

	var deactivated uuid.UUID
	store := &mockStore{
		deactivateFn: func(ctx context.Context, id uuid.UUID) error {
			deactivated = id
			return nil
		},
	}
	svc := newTestService(store)

	require.NoError(t, svc.DeleteAccount(context.Background(), actor, ""))
	assert.Equal(t, actor.ID, deactivated)
}

func TestDeleteAccountAdminSelfIsConflict(t *testing.T) {
	admin := namedUser("root", RoleAdmin)
	svc := newTestService(&mockStore{})

	err := svc.DeleteAccount(context.Background(), admin, "")
	assert.ErrorIs(t, err, ErrSelfDelete)
}

func TestPromoteToModerator(t *testing.T) {
	target := namedUser("bob", RoleUser)
	store := storeWith(target)

	var promotedTo Role
	store.updateRoleFn = func(ctx context.Context, id uuid.UUID, role Role) error {
		assert.Equal(t, target.ID, id)
		promotedTo = role
		return nil
	}
	svc := newTestService(store)

	got, err := svc.PromoteToModerator(context.Background(), namedUser("root", RoleAdmin), "bob")
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, promotedTo)
	assert.Equal(t, RoleModerator, got.Role)
}

func TestPromoteRoleGateRunsBeforeLookup(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store)

	_, err := svc.PromoteToModerator(context.Background(), namedUser("mod", RoleModerator), "ghost")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Zero(t, store.lookups)
}

func TestPromoteConflicts(t *testing.T) {
	moderator := namedUser("mod", RoleModerator)
	admin := namedUser("root", RoleAdmin)
	svc := newTestService(storeWith(moderator, admin))

	_, err := svc.PromoteToModerator(context.Background(), namedUser("boss", RoleAdmin), "mod")
	assert.ErrorIs(t, err, ErrAlreadyModerator)

	_, err = svc.PromoteToModerator(context.Background(), admin, "root")
	assert.ErrorIs(t, err, ErrSelfPromotion)
}

func TestReactivateUser(t *testing.T) {
	target := namedUser("bob", RoleUser)
	target.IsActive = false
	store := storeWith(target)

	var reactivated uuid.UUID
	store.reactivateFn = func(ctx context.Context, id uuid.UUID) error {
		reactivated = id
		return nil
	}
	svc := newTestService(store)

	got, err := svc.ReactivateUser(context.Background(), namedUser("mod", RoleModerator), "bob")
	require.NoError(t, err)
	assert.Equal(t, target.ID, reactivated)
	assert.True(t, got.IsActive)
}

func TestReactivateConflictsAndGates(t *testing.T) {
	active := namedUser("bob", RoleUser)
	inactiveMod := namedUser("mod2", RoleModerator)
	inactiveMod.IsActive = false
	store := storeWith(active, inactiveMod)

	_, err := newTestService(store).ReactivateUser(context.Background(), namedUser("alice", RoleUser), "bob")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = newTestService(store).ReactivateUser(context.Background(), namedUser("mod", RoleModerator), "mod2")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = newTestService(store).ReactivateUser(context.Background(), namedUser("root", RoleAdmin), "bob")
	assert.ErrorIs(t, err, ErrAlreadyActive)
}
