package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogMembership(t *testing.T) {
	require.True(t, IsValidModule(ModulePayroll))
	require.True(t, IsValidAction(ActionApprove))
	require.False(t, IsValidModule(Module("timesheets")))
	require.False(t, IsValidAction(Action("escalate")))
}

func TestValidatePair(t *testing.T) {
	require.NoError(t, ValidatePair(ModuleAssets, ActionExport))
	require.ErrorIs(t, ValidatePair(Module("nope"), ActionRead), ErrInvalidCatalogValue)
	require.ErrorIs(t, ValidatePair(ModuleAssets, Action("nope")), ErrInvalidCatalogValue)
}

func TestCatalogListingsAreStableCopies(t *testing.T) {
	first := Modules()
	first[0] = Module("mutated")
	require.Equal(t, ModuleEmployees, Modules()[0])

	actions := Actions()
	require.Equal(t, ActionRead, actions[0])
	require.Len(t, actions, 7)
}

func TestNewPermissionGrantValidatesAndDedupes(t *testing.T) {
	grant, err := NewPermissionGrant(ModuleLeave, []Action{ActionApprove, ActionRead, ActionRead})
	require.NoError(t, err)
	require.Equal(t, []Action{ActionRead, ActionApprove}, grant.Actions)

	_, err = NewPermissionGrant(Module("timesheets"), []Action{ActionRead})
	require.ErrorIs(t, err, ErrInvalidCatalogValue)

	_, err = NewPermissionGrant(ModuleLeave, []Action{Action("escalate")})
	require.ErrorIs(t, err, ErrInvalidCatalogValue)
}

func TestRoleGrants(t *testing.T) {
	role := Role{Permissions: []PermissionGrant{
		{Module: ModuleLeave, Actions: []Action{ActionRead, ActionApprove}},
	}}
	require.True(t, role.Grants(ModuleLeave, ActionApprove))
	require.False(t, role.Grants(ModuleLeave, ActionDelete))
	require.False(t, role.Grants(ModulePayroll, ActionRead))
}
