package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding/internal/domain/auth"
)

func TestShippedRolePermissionsAreDeclared(t *testing.T) {
	require.NoError(t, checkRolePermissions(auth.RolePermissions, auth.DefaultPermissions))
}

func TestCheckRolePermissionsListsUndeclared(t *testing.T) {
	roles := map[string][]string{
		"hr":       {"onboarding:read", "reports:read"},
		"employee": {"onboarding:read", "leave:write"},
	}
	err := checkRolePermissions(roles, []string{"onboarding:read"})
	require.Error(t, err)
	assert.EqualError(t, err, "undeclared permissions: employee:leave:write, hr:reports:read")
}
