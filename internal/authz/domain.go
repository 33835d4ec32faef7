package authz

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Sentinel errors shared by the access-control packages.
var (
	// ErrNotFound indicates a missing role, assignment or actor.
	ErrNotFound = errors.New("authz: not found")
	// ErrDuplicateName indicates a role name already taken by an active role.
	ErrDuplicateName = errors.New("authz: role name already in use")
	// ErrAlreadyAssigned indicates an active assignment already exists for the pair.
	ErrAlreadyAssigned = errors.New("authz: role already assigned")
	// ErrImmutable indicates a mutation attempt on a system role.
	ErrImmutable = errors.New("authz: system role is immutable")
	// ErrInUse indicates a role still referenced by active assignments.
	ErrInUse = errors.New("authz: role has active assignments")
	// ErrEngineUnavailable indicates the decision engine could not complete a
	// read. Callers must treat it as a deny, never as a grant.
	ErrEngineUnavailable = errors.New("authz: decision engine unavailable")
)

// BaseRole is the coarse role carried by every authenticated actor.
type BaseRole string

// Base roles. Closed set, supplied by the authentication layer.
const (
	BaseRoleAdmin    BaseRole = "admin"
	BaseRoleHR       BaseRole = "hr"
	BaseRoleManager  BaseRole = "manager"
	BaseRoleEmployee BaseRole = "employee"
)

// IsValidBaseRole reports whether r is a known base role.
func IsValidBaseRole(r BaseRole) bool {
	switch r {
	case BaseRoleAdmin, BaseRoleHR, BaseRoleManager, BaseRoleEmployee:
		return true
	}
	return false
}

// Actor is the authenticated caller as supplied by the authentication
// collaborator. The engine treats it as read-only input.
type Actor struct {
	ID       string
	BaseRole BaseRole
	IsActive bool
}

// PermissionGrant bundles the actions allowed on one module.
type PermissionGrant struct {
	Module  Module   `json:"module"`
	Actions []Action `json:"actions"`
}

// NewPermissionGrant validates every value against the catalog and returns a
// grant with deduplicated actions in catalog order.
func NewPermissionGrant(module Module, actions []Action) (PermissionGrant, error) {
	if !IsValidModule(module) {
		return PermissionGrant{}, fmt.Errorf("%w: module %q", ErrInvalidCatalogValue, module)
	}
	seen := make(map[Action]struct{}, len(actions))
	deduped := make([]Action, 0, len(actions))
	for _, a := range actions {
		if !IsValidAction(a) {
			return PermissionGrant{}, fmt.Errorf("%w: action %q", ErrInvalidCatalogValue, a)
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		deduped = append(deduped, a)
	}
	sort.Slice(deduped, func(i, j int) bool {
		return actionSet[deduped[i]] < actionSet[deduped[j]]
	})
	return PermissionGrant{Module: module, Actions: deduped}, nil
}

// Allows reports whether the grant covers the action.
func (g PermissionGrant) Allows(a Action) bool {
	for _, granted := range g.Actions {
		if granted == a {
			return true
		}
	}
	return false
}

// Role is a named, reusable bundle of per-module grants. Roles flagged as
// system roles cannot be renamed, edited or deactivated.
type Role struct {
	ID           string
	Name         string
	DisplayName  string
	Description  string
	Permissions  []PermissionGrant
	IsSystemRole bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Grants reports whether the role allows the action on the module.
func (r Role) Grants(m Module, a Action) bool {
	for _, g := range r.Permissions {
		if g.Module == m {
			return g.Allows(a)
		}
	}
	return false
}

// RoleAssignment links an actor to a role over a time window. Expiry is
// evaluated lazily at query time; nothing flips IsActive when ExpiresAt passes.
type RoleAssignment struct {
	ID         string
	ActorID    string
	RoleID     string
	AssignedBy string
	AssignedAt time.Time
	ExpiresAt  *time.Time
	IsActive   bool
	RevokedAt  *time.Time
	RevokedBy  string
}

// ActiveAt reports whether the assignment contributes grants at the given
// instant: IsActive and either no expiry or an expiry strictly in the future.
func (a RoleAssignment) ActiveAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiresAt == nil {
		return true
	}
	return a.ExpiresAt.After(now)
}
