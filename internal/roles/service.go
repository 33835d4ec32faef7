package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/authz"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	CreateRole(ctx context.Context, role authz.Role) (authz.Role, error)
	GetRole(ctx context.Context, id string) (authz.Role, error)
	FindActiveByName(ctx context.Context, name string) (authz.Role, error)
	UpdateRole(ctx context.Context, role authz.Role) (authz.Role, error)
	DeactivateRole(ctx context.Context, id string) error
	ListRoles(ctx context.Context, filter ListFilter) ([]authz.Role, int, error)
}

// AssignmentCounter reports how many active assignments reference a role.
// Counted live against the assignment repository, never cached.
type AssignmentCounter interface {
	CountActiveForRole(ctx context.Context, roleID string) (int, error)
}

// AuditPort records durable mutation history.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service enforces the role lifecycle invariants: catalog validation on every
// grant, name uniqueness among active roles, system-role immutability and the
// in-use guard on deactivation.
type Service struct {
	repo        RepositoryPort
	assignments AssignmentCounter
	audit       AuditPort
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, assignments AssignmentCounter, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		assignments: assignments,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

// Create validates and stores a new role.
func (s *Service) Create(ctx context.Context, actorID string, input CreateRoleInput) (authz.Role, error) {
	name := NormalizeName(input.Name)
	if name == "" {
		return authz.Role{}, fmt.Errorf("%w: role name required", authz.ErrInvalidCatalogValue)
	}

	grants, err := buildGrants(input.Permissions)
	if err != nil {
		return authz.Role{}, err
	}

	if _, err := s.repo.FindActiveByName(ctx, name); err == nil {
		return authz.Role{}, fmt.Errorf("%w: %s", authz.ErrDuplicateName, name)
	} else if !errors.Is(err, authz.ErrNotFound) {
		return authz.Role{}, err
	}

	now := s.now()
	role := authz.Role{
		ID:           uuid.NewString(),
		Name:         name,
		DisplayName:  input.DisplayName,
		Description:  input.Description,
		Permissions:  grants,
		IsSystemRole: input.IsSystemRole,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.CreateRole(ctx, role)
	if err != nil {
		return authz.Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.create", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

// Update applies a patch to an existing role. System roles reject any change
// regardless of the caller's tier; supplied permissions replace the stored
// list wholesale.
func (s *Service) Update(ctx context.Context, actorID, id string, patch UpdateRolePatch) (authz.Role, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return authz.Role{}, err
	}
	if role.IsSystemRole {
		return authz.Role{}, fmt.Errorf("%w: %s", authz.ErrImmutable, role.Name)
	}

	if patch.DisplayName != nil {
		role.DisplayName = *patch.DisplayName
	}
	if patch.Description != nil {
		role.Description = *patch.Description
	}
	if patch.Permissions != nil {
		grants, err := buildGrants(patch.Permissions)
		if err != nil {
			return authz.Role{}, err
		}
		role.Permissions = grants
	}
	role.UpdatedAt = s.now()

	updated, err := s.repo.UpdateRole(ctx, role)
	if err != nil {
		return authz.Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.update", updated.ID, map[string]any{"name": updated.Name})
	return updated, nil
}

// Deactivate soft-deletes a role. It fails while any active assignment still
// references the role; callers revoke those first.
func (s *Service) Deactivate(ctx context.Context, actorID, id string) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return fmt.Errorf("%w: %s", authz.ErrImmutable, role.Name)
	}

	count, err := s.assignments.CountActiveForRole(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d active assignments", authz.ErrInUse, count)
	}

	if err := s.repo.DeactivateRole(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "role.deactivate", id, map[string]any{"name": role.Name})
	return nil
}

// Get fetches a role by id.
func (s *Service) Get(ctx context.Context, id string) (authz.Role, error) {
	return s.repo.GetRole(ctx, id)
}

// List returns active roles matching the filter, paginated.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	matched, total, err := s.repo.ListRoles(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{
		Roles:      matched,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

// buildGrants validates the supplied pairs against the catalog and rejects
// duplicate modules within one role.
func buildGrants(inputs []GrantInput) ([]authz.PermissionGrant, error) {
	grants := make([]authz.PermissionGrant, 0, len(inputs))
	seen := make(map[authz.Module]struct{}, len(inputs))
	for _, input := range inputs {
		if _, ok := seen[input.Module]; ok {
			return nil, fmt.Errorf("%w: duplicate module %q", authz.ErrInvalidCatalogValue, input.Module)
		}
		grant, err := authz.NewPermissionGrant(input.Module, input.Actions)
		if err != nil {
			return nil, err
		}
		seen[input.Module] = struct{}{}
		grants = append(grants, grant)
	}
	return grants, nil
}
