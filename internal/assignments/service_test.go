package assignments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hr/meridian-hr/internal/authz"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

type memoryAssignmentRepo struct {
	assignments map[string]authz.RoleAssignment
	createErr   error
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{assignments: make(map[string]authz.RoleAssignment)}
}

// CreateAssignment mirrors the pgx repository: a lapsed active pair is retired
// before the insert, then the partial unique index rejects any remaining live
// duplicate.
func (r *memoryAssignmentRepo) CreateAssignment(_ context.Context, a authz.RoleAssignment) (authz.RoleAssignment, error) {
	if r.createErr != nil {
		return authz.RoleAssignment{}, r.createErr
	}
	for id, existing := range r.assignments {
		if !existing.IsActive || existing.ActorID != a.ActorID || existing.RoleID != a.RoleID {
			continue
		}
		if existing.ExpiresAt != nil && !existing.ExpiresAt.After(a.AssignedAt) {
			existing.IsActive = false
			r.assignments[id] = existing
			continue
		}
		return authz.RoleAssignment{}, fmt.Errorf("%w: actor %s role %s", authz.ErrAlreadyAssigned, a.ActorID, a.RoleID)
	}
	r.assignments[a.ID] = a
	return a, nil
}

func (r *memoryAssignmentRepo) FindActivePair(_ context.Context, actorID, roleID string) (authz.RoleAssignment, error) {
	for _, a := range r.assignments {
		if a.IsActive && a.ActorID == actorID && a.RoleID == roleID {
			return a, nil
		}
	}
	return authz.RoleAssignment{}, fmt.Errorf("%w: assignment", authz.ErrNotFound)
}

func (r *memoryAssignmentRepo) RevokeAssignment(_ context.Context, id, revokedBy string, at time.Time) error {
	a, ok := r.assignments[id]
	if !ok || !a.IsActive {
		return fmt.Errorf("%w: assignment %s", authz.ErrNotFound, id)
	}
	a.IsActive = false
	a.RevokedAt = &at
	a.RevokedBy = revokedBy
	r.assignments[id] = a
	return nil
}

func (r *memoryAssignmentRepo) ListHistory(_ context.Context, actorID string) ([]authz.RoleAssignment, error) {
	var history []authz.RoleAssignment
	for _, a := range r.assignments {
		if a.ActorID == actorID {
			history = append(history, a)
		}
	}
	return history, nil
}

type memoryRolePort struct {
	roles map[string]authz.Role
}

func (p *memoryRolePort) GetRole(_ context.Context, id string) (authz.Role, error) {
	role, ok := p.roles[id]
	if !ok {
		return authz.Role{}, fmt.Errorf("%w: role %s", authz.ErrNotFound, id)
	}
	return role, nil
}

type memoryActorPort struct {
	actors map[string]authz.Actor
}

func (p *memoryActorPort) GetActor(_ context.Context, id string) (authz.Actor, error) {
	actor, ok := p.actors[id]
	if !ok {
		return authz.Actor{}, fmt.Errorf("%w: actor %s", authz.ErrNotFound, id)
	}
	return actor, nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryAssignmentRepo, *memoryRolePort, *memoryActorPort, *memoryAudit) {
	t.Helper()
	repo := newMemoryAssignmentRepo()
	roles := &memoryRolePort{roles: map[string]authz.Role{
		"r-approver": {ID: "r-approver", Name: "leave_approver", IsActive: true},
		"r-retired":  {ID: "r-retired", Name: "old_auditor", IsActive: false},
	}}
	actors := &memoryActorPort{actors: map[string]authz.Actor{
		"emp-1":  {ID: "emp-1", BaseRole: authz.BaseRoleEmployee, IsActive: true},
		"emp-2":  {ID: "emp-2", BaseRole: authz.BaseRoleManager, IsActive: true},
		"emp-ex": {ID: "emp-ex", BaseRole: authz.BaseRoleEmployee, IsActive: false},
	}}
	audit := &memoryAudit{}
	svc := NewService(repo, roles, actors, audit, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, roles, actors, audit
}

func TestAssignCreatesActiveAssignment(t *testing.T) {
	svc, _, _, _, audit := newTestService(t)

	created, err := svc.Assign(context.Background(), AssignInput{
		ActorID:    "emp-1",
		RoleID:     "r-approver",
		AssignedBy: "hr-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.True(t, created.IsActive)
	require.Nil(t, created.ExpiresAt)
	require.Equal(t, "hr-1", created.AssignedBy)
	require.Equal(t, svc.now(), created.AssignedAt)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "assignment.create", audit.logs[0].Action)
	require.Equal(t, "hr-1", audit.logs[0].ActorID)
}

func TestAssignRejectsUnknownOrInactiveParties(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.Assign(context.Background(), AssignInput{ActorID: "ghost", RoleID: "r-approver"})
	require.ErrorIs(t, err, authz.ErrNotFound)

	_, err = svc.Assign(context.Background(), AssignInput{ActorID: "emp-ex", RoleID: "r-approver"})
	require.ErrorIs(t, err, authz.ErrNotFound)

	_, err = svc.Assign(context.Background(), AssignInput{ActorID: "emp-1", RoleID: "ghost"})
	require.ErrorIs(t, err, authz.ErrNotFound)

	_, err = svc.Assign(context.Background(), AssignInput{ActorID: "emp-1", RoleID: "r-retired"})
	require.ErrorIs(t, err, authz.ErrNotFound)
}

func TestAssignRejectsActivePair(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	input := AssignInput{ActorID: "emp-1", RoleID: "r-approver", AssignedBy: "hr-1"}

	_, err := svc.Assign(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), input)
	require.ErrorIs(t, err, authz.ErrAlreadyAssigned)
}

func TestAssignAllowsPairAgainAfterExpiry(t *testing.T) {
	svc, repo, _, _, _ := newTestService(t)

	// An assignment that lapsed yesterday still has IsActive set; expiry is
	// evaluated lazily against the clock.
	expired := svc.now().Add(-24 * time.Hour)
	repo.assignments["old"] = authz.RoleAssignment{
		ID:        "old",
		ActorID:   "emp-1",
		RoleID:    "r-approver",
		ExpiresAt: &expired,
		IsActive:  true,
	}

	created, err := svc.Assign(context.Background(), AssignInput{
		ActorID:    "emp-1",
		RoleID:     "r-approver",
		AssignedBy: "hr-1",
	})
	require.NoError(t, err)
	require.NotEqual(t, "old", created.ID)

	// The lapsed row was retired alongside the insert: exactly one live row
	// remains for the pair, so the active-pair uniqueness rule holds.
	require.False(t, repo.assignments["old"].IsActive)
	require.True(t, repo.assignments[created.ID].IsActive)
}

func TestAssignSurfacesConcurrentDuplicate(t *testing.T) {
	svc, repo, _, _, _ := newTestService(t)

	// A racing assign can slip in between the pre-check and the insert; the
	// database index rejects the second insert and the repository maps the
	// violation. The service must pass that sentinel through unchanged.
	repo.createErr = fmt.Errorf("%w: actor emp-1 role r-approver", authz.ErrAlreadyAssigned)

	_, err := svc.Assign(context.Background(), AssignInput{
		ActorID:    "emp-1",
		RoleID:     "r-approver",
		AssignedBy: "hr-1",
	})
	require.ErrorIs(t, err, authz.ErrAlreadyAssigned)
}

func TestUniqueViolationDetection(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "role_assignments_active_pair_key"}
	require.True(t, isUniqueViolation(pgErr))
	require.True(t, isUniqueViolation(fmt.Errorf("insert: %w", pgErr)))
	require.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, isUniqueViolation(context.DeadlineExceeded))
}

func TestRevokeStampsWhoAndWhen(t *testing.T) {
	svc, repo, _, _, audit := newTestService(t)

	created, err := svc.Assign(context.Background(), AssignInput{
		ActorID:    "emp-2",
		RoleID:     "r-approver",
		AssignedBy: "hr-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), "emp-2", "r-approver", "hr-2"))

	stored := repo.assignments[created.ID]
	require.False(t, stored.IsActive)
	require.Equal(t, "hr-2", stored.RevokedBy)
	require.NotNil(t, stored.RevokedAt)
	require.Equal(t, svc.now(), *stored.RevokedAt)

	require.Len(t, audit.logs, 2)
	require.Equal(t, "assignment.revoke", audit.logs[1].Action)
}

func TestRevokeWithoutActivePairFails(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	err := svc.Revoke(context.Background(), "emp-1", "r-approver", "hr-1")
	require.ErrorIs(t, err, authz.ErrNotFound)
}

func TestListHistoryKeepsRevokedRows(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.Assign(context.Background(), AssignInput{ActorID: "emp-1", RoleID: "r-approver", AssignedBy: "hr-1"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), "emp-1", "r-approver", "hr-1"))
	_, err = svc.Assign(context.Background(), AssignInput{ActorID: "emp-1", RoleID: "r-approver", AssignedBy: "hr-1"})
	require.NoError(t, err)

	history, err := svc.ListHistory(context.Background(), "emp-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	active := 0
	for _, a := range history {
		if a.IsActive {
			active++
		}
	}
	require.Equal(t, 1, active)
}
