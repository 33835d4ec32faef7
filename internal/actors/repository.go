// Package actors is the read-only directory of authenticated actors. Actor
// records are owned by the employee/auth subsystems; this service only looks
// them up to resolve sessions and validate assignment targets.
package actors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hr/meridian-hr/internal/authz"
)

// Repository provides PostgreSQL backed actor lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetActor fetches an actor by id.
func (r *Repository) GetActor(ctx context.Context, id string) (authz.Actor, error) {
	var actor authz.Actor
	err := r.pool.QueryRow(ctx, `SELECT id, base_role, is_active FROM actors WHERE id = $1`, id).
		Scan(&actor.ID, &actor.BaseRole, &actor.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Actor{}, fmt.Errorf("%w: actor %s", authz.ErrNotFound, id)
		}
		return authz.Actor{}, err
	}
	return actor, nil
}
