package roles

import (
	"strings"

	"github.com/meridian-hr/meridian-hr/internal/authz"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// GrantInput is one module/actions pair supplied on create or update.
type GrantInput struct {
	Module  authz.Module   `json:"module" validate:"required"`
	Actions []authz.Action `json:"actions" validate:"required,min=1"`
}

// CreateRoleInput describes a role creation payload.
type CreateRoleInput struct {
	Name         string
	DisplayName  string
	Description  string
	Permissions  []GrantInput
	IsSystemRole bool
}

// UpdateRolePatch describes a partial role update. A nil Permissions slice
// leaves grants untouched; a non-nil slice replaces them wholesale.
type UpdateRolePatch struct {
	DisplayName *string
	Description *string
	Permissions []GrantInput
}

// ListFilter narrows and paginates role listings.
type ListFilter struct {
	Query   string
	Page    int
	PerPage int
}

// ListResult bundles one page of active roles with pagination metadata.
type ListResult struct {
	Roles      []authz.Role
	Pagination shared.Pagination
}

// NormalizeName lowercases a role name and collapses whitespace and hyphens
// into underscores, the canonical form enforced on every stored role.
func NormalizeName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	})
	return strings.Join(fields, "_")
}
