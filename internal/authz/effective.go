package authz

import (
	"context"
	"errors"
	"time"
)

// TierSets names the role memberships that escalate an actor's coarse role.
type TierSets struct {
	HR    []string
	Admin []string
}

// DefaultTierSets returns the designated escalation sets.
func DefaultTierSets() TierSets {
	return TierSets{
		HR:    []string{"hr_manager", "hr_executive", "recruiter"},
		Admin: []string{"super_admin", "system_admin"},
	}
}

// Resolution is the tagged result of an effective-role computation. Degraded
// distinguishes "actor genuinely holds no elevated role" from "we could not
// check": when set, Role is the actor's base role and Cause records why the
// assignment lookup failed.
type Resolution struct {
	Role     BaseRole
	Degraded bool
	Cause    error
}

// EffectiveRoleResolver computes the coarse single-label role used by call
// sites that gate on a short role list instead of fine-grained grants.
type EffectiveRoleResolver struct {
	roles       RoleSource
	assignments AssignmentSource
	tiers       TierSets
	now         func() time.Time
}

// NewEffectiveRoleResolver constructs a resolver with the given tier sets.
func NewEffectiveRoleResolver(roles RoleSource, assignments AssignmentSource, tiers TierSets) *EffectiveRoleResolver {
	return &EffectiveRoleResolver{
		roles:       roles,
		assignments: assignments,
		tiers:       tiers,
		now:         time.Now,
	}
}

// Resolve escalates the base role from active assignments. HR-tier membership
// raises to hr, admin-tier membership raises to admin afterwards and therefore
// wins when an actor holds both. Resolve never fails: a repository error
// degrades to the base role with the cause attached.
func (r *EffectiveRoleResolver) Resolve(ctx context.Context, actor Actor) Resolution {
	resolution := Resolution{Role: actor.BaseRole}

	names, err := r.activeRoleNames(ctx, actor.ID)
	if err != nil {
		resolution.Degraded = true
		resolution.Cause = err
		return resolution
	}

	if containsAny(names, r.tiers.HR) {
		resolution.Role = BaseRoleHR
	}
	if containsAny(names, r.tiers.Admin) {
		resolution.Role = BaseRoleAdmin
	}
	return resolution
}

func (r *EffectiveRoleResolver) activeRoleNames(ctx context.Context, actorID string) (map[string]struct{}, error) {
	assignments, err := r.assignments.ListForActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	names := make(map[string]struct{}, len(assignments))
	for _, assignment := range assignments {
		if !assignment.ActiveAt(now) {
			continue
		}
		role, err := r.roles.GetRole(ctx, assignment.RoleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !role.IsActive {
			continue
		}
		names[role.Name] = struct{}{}
	}
	return names, nil
}

func containsAny(have map[string]struct{}, wanted []string) bool {
	for _, name := range wanted {
		if _, ok := have[name]; ok {
			return true
		}
	}
	return false
}
