package assignments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hr/meridian-hr/internal/authz"
	"github.com/meridian-hr/meridian-hr/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for role assignments.
// A partial unique index on (actor_id, role_id) WHERE is_active guarantees at
// most one live assignment per pair even under concurrent assigns.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assignmentColumns = `id, actor_id, role_id, assigned_by, assigned_at, expires_at, is_active, revoked_at, revoked_by`

// CreateAssignment inserts a new assignment. A lapsed predecessor for the
// pair still carries is_active under lazy expiry; it is retired in the same
// transaction so the partial unique index only ever guards live pairs. The
// retirement stamps nothing: a lapse is not a revocation.
func (r *Repository) CreateAssignment(ctx context.Context, a authz.RoleAssignment) (authz.RoleAssignment, error) {
	var created authz.RoleAssignment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE role_assignments SET is_active = FALSE
			WHERE actor_id = $1 AND role_id = $2 AND is_active
			  AND expires_at IS NOT NULL AND expires_at <= $3`,
			a.ActorID, a.RoleID, a.AssignedAt)
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO role_assignments (id, actor_id, role_id, assigned_by, assigned_at, expires_at, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+assignmentColumns,
			a.ID, a.ActorID, a.RoleID, a.AssignedBy, a.AssignedAt, a.ExpiresAt, a.IsActive)
		created, err = scanAssignment(row)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return authz.RoleAssignment{}, fmt.Errorf("%w: actor %s role %s", authz.ErrAlreadyAssigned, a.ActorID, a.RoleID)
		}
		return authz.RoleAssignment{}, err
	}
	return created, nil
}

// FindActivePair returns the assignment with IsActive set for the pair.
func (r *Repository) FindActivePair(ctx context.Context, actorID, roleID string) (authz.RoleAssignment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+` FROM role_assignments
		WHERE actor_id = $1 AND role_id = $2 AND is_active`, actorID, roleID)
	assignment, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.RoleAssignment{}, fmt.Errorf("%w: assignment for actor %s role %s", authz.ErrNotFound, actorID, roleID)
		}
		return authz.RoleAssignment{}, err
	}
	return assignment, nil
}

// RevokeAssignment flips IsActive off and stamps the revocation. No rows are
// ever deleted.
func (r *Repository) RevokeAssignment(ctx context.Context, id, revokedBy string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE role_assignments
		SET is_active = FALSE, revoked_at = $2, revoked_by = $3
		WHERE id = $1 AND is_active`, id, at, revokedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: assignment %s", authz.ErrNotFound, id)
	}
	return nil
}

// ListForActor returns the actor's assignments with IsActive set. Expiry is
// evaluated by the caller's clock, keeping the lazy-expiry rule in one place.
// Satisfies authz.AssignmentSource.
func (r *Repository) ListForActor(ctx context.Context, actorID string) ([]authz.RoleAssignment, error) {
	return r.list(ctx, `
		SELECT `+assignmentColumns+` FROM role_assignments
		WHERE actor_id = $1 AND is_active
		ORDER BY assigned_at DESC`, actorID)
}

// ListHistory returns every assignment for the actor, newest first.
func (r *Repository) ListHistory(ctx context.Context, actorID string) ([]authz.RoleAssignment, error) {
	return r.list(ctx, `
		SELECT `+assignmentColumns+` FROM role_assignments
		WHERE actor_id = $1
		ORDER BY assigned_at DESC`, actorID)
}

// ListExpiringWithin returns active assignments whose expiry falls inside the
// window starting now. Used by the expiry digest job; read-only.
func (r *Repository) ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]authz.RoleAssignment, error) {
	return r.list(ctx, `
		SELECT `+assignmentColumns+` FROM role_assignments
		WHERE is_active AND expires_at IS NOT NULL AND expires_at > $1 AND expires_at <= $2
		ORDER BY expires_at`, now, now.Add(window))
}

// CountActiveForRole counts live assignments referencing the role. Backs the
// in-use guard on role deactivation; always a live query, never cached.
func (r *Repository) CountActiveForRole(ctx context.Context, roleID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM role_assignments
		WHERE role_id = $1 AND is_active AND (expires_at IS NULL OR expires_at > NOW())`, roleID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]authz.RoleAssignment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.RoleAssignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanAssignment(row pgx.Row) (authz.RoleAssignment, error) {
	var a authz.RoleAssignment
	var revokedBy *string
	err := row.Scan(&a.ID, &a.ActorID, &a.RoleID, &a.AssignedBy, &a.AssignedAt, &a.ExpiresAt, &a.IsActive, &a.RevokedAt, &revokedBy)
	if err != nil {
		return authz.RoleAssignment{}, err
	}
	if revokedBy != nil {
		a.RevokedBy = *revokedBy
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
