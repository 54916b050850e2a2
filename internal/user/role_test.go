package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleModerator.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestRoleOutranks(t *testing.T) {
	tests := []struct {
		actor  Role
		target Role
		want   bool
	}{
		{RoleAdmin, RoleModerator, true},
		{RoleAdmin, RoleUser, true},
		{RoleModerator, RoleUser, true},
		{RoleAdmin, RoleAdmin, false},
		{RoleModerator, RoleModerator, false},
		{RoleModerator, RoleAdmin, false},
		{RoleUser, RoleUser, false},
		{RoleUser, RoleAdmin, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.actor.Outranks(tt.target),
			"%s outranks %s", tt.actor, tt.target)
	}
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleModerator))
	assert.True(t, RoleModerator.AtLeast(RoleModerator))
	assert.False(t, RoleUser.AtLeast(RoleModerator))
	assert.True(t, RoleUser.AtLeast(RoleUser))
}
