package identity_test

import (
	"testing"

	identity "github.com/mentorhub/identity"
	"github.com/stretchr/testify/assert"
)

func TestParseRoleKey(t *testing.T) {
	for _, key := range identity.AllRoleKeys() {
		parsed, ok := identity.ParseRoleKey(key)
		assert.True(t, ok)
		assert.Equal(t, key, parsed)
	}

	_, ok := identity.ParseRoleKey("superuser")
	assert.False(t, ok)

	_, ok = identity.ParseRoleKey("")
	assert.False(t, ok)
}

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role identity.RoleKey
		min  identity.RoleKey
		want bool
	}{
		{identity.RoleStudent, identity.RoleStudent, true},
		{identity.RoleStudent, identity.RoleMentor, false},
		{identity.RoleMentor, identity.RoleStudent, true},
		{identity.RoleManager, identity.RoleMentor, true},
		{identity.RoleMentor, identity.RoleManager, false},
		{"unknown", identity.RoleStudent, false},
		{identity.RoleManager, "unknown", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, identity.RoleAtLeast(tt.role, tt.min), "%s >= %s", tt.role, tt.min)
	}
}
