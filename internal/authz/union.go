package authz

import (
	"context"
	"errors"
	"sort"
	"time"
)

// UnionQuery aggregates an actor's active grants per module for display.
// It ignores the base role, the bypass rules and the legacy fallback table:
// the result is informational and must never gate access.
type UnionQuery struct {
	roles       RoleSource
	assignments AssignmentSource
	now         func() time.Time
}

// NewUnionQuery constructs a UnionQuery.
func NewUnionQuery(roles RoleSource, assignments AssignmentSource) *UnionQuery {
	return &UnionQuery{roles: roles, assignments: assignments, now: time.Now}
}

// EffectivePermissions returns the per-module union of actions granted by
// every role the actor actively holds, plus the names of the backing roles.
// The result is deterministic: actions follow catalog order and role names
// are sorted, independent of assignment order.
func (q *UnionQuery) EffectivePermissions(ctx context.Context, actorID string) (map[Module][]Action, []string, error) {
	assignments, err := q.assignments.ListForActor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	now := q.now()
	merged := make(map[Module]map[Action]struct{})
	roleNames := make(map[string]struct{})
	for _, assignment := range assignments {
		if !assignment.ActiveAt(now) {
			continue
		}
		role, err := q.roles.GetRole(ctx, assignment.RoleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		if !role.IsActive {
			continue
		}
		roleNames[role.Name] = struct{}{}
		for _, grant := range role.Permissions {
			actions, ok := merged[grant.Module]
			if !ok {
				actions = make(map[Action]struct{})
				merged[grant.Module] = actions
			}
			for _, a := range grant.Actions {
				actions[a] = struct{}{}
			}
		}
	}

	result := make(map[Module][]Action, len(merged))
	for module, actions := range merged {
		ordered := make([]Action, 0, len(actions))
		for a := range actions {
			ordered = append(ordered, a)
		}
		sort.Slice(ordered, func(i, j int) bool {
			return actionSet[ordered[i]] < actionSet[ordered[j]]
		})
		result[module] = ordered
	}

	names := make([]string, 0, len(roleNames))
	for name := range roleNames {
		names = append(names, name)
	}
	sort.Strings(names)

	return result, names, nil
}
