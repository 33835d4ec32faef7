package assignments

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
	CreateAssignment(ctx context.Context, assignment authz.RoleAssignment) (authz.RoleAssignment, error)
	FindActivePair(ctx context.Context, actorID, roleID string) (authz.RoleAssignment, error)
	RevokeAssignment(ctx context.Context, id, revokedBy string, at time.Time) error
	ListHistory(ctx context.Context, actorID string) ([]authz.RoleAssignment, error)
}

// RolePort resolves role definitions.
type RolePort interface {
	GetRole(ctx context.Context, id string) (authz.Role, error)
}

// ActorPort resolves actors from the directory.
type ActorPort interface {
	GetActor(ctx context.Context, id string) (authz.Actor, error)
}

// AuditPort records durable mutation history.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the lifecycle of role assignments. Assignments are revoked
// by flipping IsActive, never hard-deleted, so history stays auditable.
type Service struct {
	repo   RepositoryPort
	roles  RolePort
	actors ActorPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, roles RolePort, actors ActorPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		roles:  roles,
		actors: actors,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// AssignInput describes an assignment request.
type AssignInput struct {
	ActorID    string
	RoleID     string
	AssignedBy string
	ExpiresAt  *time.Time
}

// Assign links an actor to an active role. An active, non-expired assignment
// for the same pair rejects the request; the repository's partial unique
// index backs this up against concurrent assigns.
func (s *Service) Assign(ctx context.Context, input AssignInput) (authz.RoleAssignment, error) {
	actor, err := s.actors.GetActor(ctx, input.ActorID)
	if err != nil {
		return authz.RoleAssignment{}, err
	}
	if !actor.IsActive {
		return authz.RoleAssignment{}, fmt.Errorf("%w: actor %s", authz.ErrNotFound, input.ActorID)
	}

	role, err := s.roles.GetRole(ctx, input.RoleID)
	if err != nil {
		return authz.RoleAssignment{}, err
	}
	if !role.IsActive {
		return authz.RoleAssignment{}, fmt.Errorf("%w: role %s", authz.ErrNotFound, input.RoleID)
	}

	now := s.now()
	existing, err := s.repo.FindActivePair(ctx, input.ActorID, input.RoleID)
	switch {
	case err == nil:
		if existing.ActiveAt(now) {
			return authz.RoleAssignment{}, fmt.Errorf("%w: actor %s role %s", authz.ErrAlreadyAssigned, input.ActorID, input.RoleID)
		}
	case !errors.Is(err, authz.ErrNotFound):
		return authz.RoleAssignment{}, err
	}

	assignment := authz.RoleAssignment{
		ID:         uuid.NewString(),
		ActorID:    input.ActorID,
		RoleID:     input.RoleID,
		AssignedBy: input.AssignedBy,
		AssignedAt: now,
		ExpiresAt:  input.ExpiresAt,
		IsActive:   true,
	}

	created, err := s.repo.CreateAssignment(ctx, assignment)
	if err != nil {
		return authz.RoleAssignment{}, err
	}
	s.recordAudit(ctx, input.AssignedBy, "assignment.create", created.ID, map[string]any{
		"actor_id": created.ActorID,
		"role_id":  created.RoleID,
	})
	return created, nil
}

// Revoke deactivates the active assignment for the pair, stamping who revoked
// it and when.
func (s *Service) Revoke(ctx context.Context, actorID, roleID, revokedBy string) error {
	assignment, err := s.repo.FindActivePair(ctx, actorID, roleID)
	if err != nil {
		return err
	}

	if err := s.repo.RevokeAssignment(ctx, assignment.ID, revokedBy, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, revokedBy, "assignment.revoke", assignment.ID, map[string]any{
		"actor_id": actorID,
		"role_id":  roleID,
	})
	return nil
}

// ListHistory returns every assignment for the actor, active and revoked,
// newest first, for audit and UI purposes.
func (s *Service) ListHistory(ctx context.Context, actorID string) ([]authz.RoleAssignment, error) {
	return s.repo.ListHistory(ctx, actorID)
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role_assignment",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
