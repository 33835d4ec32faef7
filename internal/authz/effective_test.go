package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestResolver(roles *memoryRoleSource, assignments *memoryAssignmentSource, at time.Time) *EffectiveRoleResolver {
	r := NewEffectiveRoleResolver(roles, assignments, DefaultTierSets())
	r.now = fixedClock(at)
	return r
}

func tierRoles() *memoryRoleSource {
	return &memoryRoleSource{roles: map[string]Role{
		"hr":    {ID: "hr", Name: "hr_manager", IsActive: true},
		"admin": {ID: "admin", Name: "super_admin", IsActive: true},
		"plain": {ID: "plain", Name: "asset_auditor", IsActive: true},
	}}
}

func TestResolveKeepsBaseRoleWithoutTierMembership(t *testing.T) {
	now := time.Now()
	assignments := &memoryAssignmentSource{byActor: map[string][]RoleAssignment{
		"e1": {{ID: "as1", ActorID: "e1", RoleID: "plain", IsActive: true}},
	}}
	resolver := newTestResolver(tierRoles(), assignments, now)

	resolution := resolver.Resolve(context.Background(), Actor{ID: "e1", BaseRole: BaseRoleEmployee})
	require.Equal(t, BaseRoleEmployee, resolution.Role)
	require.False(t, resolution.Degraded)
}

func TestResolveEscalatesHRTier(t *testing.T) {
	now := time.Now()
	assignments := &memoryAssignmentSource{byActor: map[string][]RoleAssignment{
		"e1": {{ID: "as1", ActorID: "e1", RoleID: "hr", IsActive: true}},
	}}
	resolver := newTestResolver(tierRoles(), assignments, now)

	resolution := resolver.Resolve(context.Background(), Actor{ID: "e1", BaseRole: BaseRoleEmployee})
	require.Equal(t, BaseRoleHR, resolution.Role)
}

func TestResolveAdminTierWinsOverHRTier(t *testing.T) {
	now := time.Now()
	assignments := &memoryAssignmentSource{byActor: map[string][]RoleAssignment{
		"e1": {
			{ID: "as1", ActorID: "e1", RoleID: "hr", IsActive: true},
			{ID: "as2", ActorID: "e1", RoleID: "admin", IsActive: true},
		},
	}}
	resolver := newTestResolver(tierRoles(), assignments, now)

	resolution := resolver.Resolve(context.Background(), Actor{ID: "e1", BaseRole: BaseRoleManager})
	require.Equal(t, BaseRoleAdmin, resolution.Role)
}

func TestResolveIgnoresExpiredTierAssignments(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	assignments := &memoryAssignmentSource{byActor: map[string][]RoleAssignment{
		"e1": {{ID: "as1", ActorID: "e1", RoleID: "admin", IsActive: true, ExpiresAt: &yesterday}},
	}}
	resolver := newTestResolver(tierRoles(), assignments, now)

	resolution := resolver.Resolve(context.Background(), Actor{ID: "e1", BaseRole: BaseRoleEmployee})
	require.Equal(t, BaseRoleEmployee, resolution.Role)
	require.False(t, resolution.Degraded)
}

func TestResolveDegradesOnRepositoryFailure(t *testing.T) {
	cause := errors.New("timeout")
	resolver := newTestResolver(tierRoles(), &memoryAssignmentSource{err: cause}, time.Now())

	resolution := resolver.Resolve(context.Background(), Actor{ID: "e1", BaseRole: BaseRoleManager})
	require.Equal(t, BaseRoleManager, resolution.Role)
	require.True(t, resolution.Degraded)
	require.ErrorIs(t, resolution.Cause, cause)
}
