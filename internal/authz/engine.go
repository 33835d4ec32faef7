package authz

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RoleSource loads role definitions for decision evaluation.
type RoleSource interface {
	// GetRole returns ErrNotFound when no role exists under the id.
	GetRole(ctx context.Context, id string) (Role, error)
}

// AssignmentSource loads role assignments for decision evaluation.
type AssignmentSource interface {
	// ListForActor returns every assignment with IsActive set for the actor.
	// Expiry filtering is the caller's concern.
	ListForActor(ctx context.Context, actorID string) ([]RoleAssignment, error)
}

// DecisionReason explains which layer granted access.
type DecisionReason string

// Grant reasons, in evaluation order.
const (
	ReasonAdminBypass DecisionReason = "admin_bypass"
	ReasonHRBypass    DecisionReason = "hr_bypass"
	ReasonRoleGrant   DecisionReason = "role_grant"
	ReasonLegacyRole  DecisionReason = "legacy_role"
)

// Decision is the outcome of one access check. A deny is a normal outcome,
// not an error; the diagnostic triple is always populated.
type Decision struct {
	Granted       bool
	Reason        DecisionReason
	GrantedByRole string
	Module        Module
	Action        Action
	ActorBaseRole BaseRole
}

// Engine resolves whether an actor may perform an action on a module. It is
// stateless: every call re-reads assignment and role state, so decisions are
// always consistent with the latest writes. Calls may run fully in parallel.
type Engine struct {
	roles       RoleSource
	assignments AssignmentSource
	fallback    *LegacyFallback
	now         func() time.Time
}

// NewEngine constructs an Engine over the given sources and fallback matrix.
func NewEngine(roles RoleSource, assignments AssignmentSource, fallback *LegacyFallback) *Engine {
	return &Engine{
		roles:       roles,
		assignments: assignments,
		fallback:    fallback,
		now:         time.Now,
	}
}

// Decide evaluates the layers top to bottom, first match wins:
// admin bypass, HR bypass on the permissions module, explicit role grants,
// legacy fallback. Any repository failure aborts with ErrEngineUnavailable;
// the engine never converts an infrastructure error into a grant.
func (e *Engine) Decide(ctx context.Context, actor Actor, module Module, action Action) (Decision, error) {
	if err := ValidatePair(module, action); err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Module:        module,
		Action:        action,
		ActorBaseRole: actor.BaseRole,
	}

	if actor.BaseRole == BaseRoleAdmin {
		decision.Granted = true
		decision.Reason = ReasonAdminBypass
		return decision, nil
	}
	// HR administers permissions unconditionally; all other HR access is
	// grant-based like any non-admin actor.
	if actor.BaseRole == BaseRoleHR && module == ModulePermissions {
		decision.Granted = true
		decision.Reason = ReasonHRBypass
		return decision, nil
	}

	granted, roleName, err := e.explicitGrant(ctx, actor.ID, module, action)
	if err != nil {
		return Decision{}, err
	}
	if granted {
		decision.Granted = true
		decision.Reason = ReasonRoleGrant
		decision.GrantedByRole = roleName
		return decision, nil
	}

	if e.fallback.Allows(module, action, actor.BaseRole) {
		decision.Granted = true
		decision.Reason = ReasonLegacyRole
		return decision, nil
	}

	return decision, nil
}

func (e *Engine) explicitGrant(ctx context.Context, actorID string, module Module, action Action) (bool, string, error) {
	assignments, err := e.assignments.ListForActor(ctx, actorID)
	if err != nil {
		return false, "", fmt.Errorf("%w: list assignments: %v", ErrEngineUnavailable, err)
	}

	now := e.now()
	for _, assignment := range assignments {
		if !assignment.ActiveAt(now) {
			continue
		}
		role, err := e.roles.GetRole(ctx, assignment.RoleID)
		if err != nil {
			// A dangling reference contributes no grant; anything else is an
			// infrastructure failure and must fail closed.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return false, "", fmt.Errorf("%w: load role %s: %v", ErrEngineUnavailable, assignment.RoleID, err)
		}
		if !role.IsActive {
			continue
		}
		if role.Grants(module, action) {
			return true, role.Name, nil
		}
	}
	return false, "", nil
}
