package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFallbackKnownRows(t *testing.T) {
	fallback := NewLegacyFallback()

	require.True(t, fallback.Allows(ModuleAttendance, ActionRead, BaseRoleManager))
	require.True(t, fallback.Allows(ModuleEmployees, ActionDelete, BaseRoleAdmin))
	require.False(t, fallback.Allows(ModuleEmployees, ActionDelete, BaseRoleHR))
	require.False(t, fallback.Allows(ModuleAssets, ActionExport, BaseRoleEmployee))
}

func TestFallbackMissingEntriesFailClosed(t *testing.T) {
	fallback := NewLegacyFallback()

	// settings has no approve row; reports has no create row.
	for _, role := range []BaseRole{BaseRoleAdmin, BaseRoleHR, BaseRoleManager, BaseRoleEmployee} {
		require.False(t, fallback.Allows(ModuleSettings, ActionApprove, role))
		require.False(t, fallback.Allows(ModuleReports, ActionCreate, role))
	}
}

func TestFallbackRolesReturnsCopy(t *testing.T) {
	fallback := NewLegacyFallback()

	roles := fallback.Roles(ModuleEmployees, ActionDelete)
	require.Equal(t, []BaseRole{BaseRoleAdmin}, roles)

	roles[0] = BaseRoleEmployee
	require.True(t, fallback.Allows(ModuleEmployees, ActionDelete, BaseRoleAdmin))
	require.False(t, fallback.Allows(ModuleEmployees, ActionDelete, BaseRoleEmployee))

	require.Nil(t, fallback.Roles(ModuleSettings, ActionImport))
}
