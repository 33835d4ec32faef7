package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hr/meridian-hr/internal/authz"
	"github.com/meridian-hr/meridian-hr/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for roles. Permissions
// are stored as a JSONB document; a partial unique index on (name) WHERE
// is_active enforces name uniqueness among active roles at the database level.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, display_name, description, permissions, is_system_role, is_active, created_at, updated_at`

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, role authz.Role) (authz.Role, error) {
	permissions, err := json.Marshal(role.Permissions)
	if err != nil {
		return authz.Role{}, fmt.Errorf("roles: marshal permissions: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (id, name, display_name, description, permissions, is_system_role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+roleColumns,
		role.ID, role.Name, role.DisplayName, role.Description, permissions, role.IsSystemRole, role.IsActive, role.CreatedAt, role.UpdatedAt)
	created, err := scanRole(row)
	if err != nil {
		if isUniqueViolation(err) {
			return authz.Role{}, fmt.Errorf("%w: %s", authz.ErrDuplicateName, role.Name)
		}
		return authz.Role{}, err
	}
	return created, nil
}

// GetRole fetches a role by id. Satisfies authz.RoleSource.
func (r *Repository) GetRole(ctx context.Context, id string) (authz.Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Role{}, fmt.Errorf("%w: role %s", authz.ErrNotFound, id)
		}
		return authz.Role{}, err
	}
	return role, nil
}

// FindActiveByName fetches the active role carrying the normalized name.
func (r *Repository) FindActiveByName(ctx context.Context, name string) (authz.Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1 AND is_active`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Role{}, fmt.Errorf("%w: role %s", authz.ErrNotFound, name)
		}
		return authz.Role{}, err
	}
	return role, nil
}

// UpdateRole replaces the stored role row.
func (r *Repository) UpdateRole(ctx context.Context, role authz.Role) (authz.Role, error) {
	permissions, err := json.Marshal(role.Permissions)
	if err != nil {
		return authz.Role{}, fmt.Errorf("roles: marshal permissions: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE roles
		SET display_name = $2, description = $3, permissions = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+roleColumns,
		role.ID, role.DisplayName, role.Description, permissions, role.UpdatedAt)
	updated, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Role{}, fmt.Errorf("%w: role %s", authz.ErrNotFound, role.ID)
		}
		return authz.Role{}, err
	}
	return updated, nil
}

// DeactivateRole soft-deletes a role. The in-use recheck runs in the same
// transaction as the flip, so an assignment created between the service's
// pre-check and this call still blocks the deactivation.
func (r *Repository) DeactivateRole(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var inUse int
		err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM role_assignments
			WHERE role_id = $1 AND is_active AND (expires_at IS NULL OR expires_at > NOW())`, id).Scan(&inUse)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return fmt.Errorf("%w: %d active assignments", authz.ErrInUse, inUse)
		}

		tag, err := tx.Exec(ctx, `UPDATE roles SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: role %s", authz.ErrNotFound, id)
		}
		return nil
	})
}

// ListRoles returns active roles matching a name/display-name substring,
// with the total match count for pagination.
func (r *Repository) ListRoles(ctx context.Context, filter ListFilter) ([]authz.Role, int, error) {
	pattern := "%" + filter.Query + "%"
	offset := (filter.Page - 1) * filter.PerPage

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM roles
		WHERE is_active AND (name ILIKE $1 OR display_name ILIKE $1)`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+roleColumns+` FROM roles
		WHERE is_active AND (name ILIKE $1 OR display_name ILIKE $1)
		ORDER BY name
		LIMIT $2 OFFSET $3`, pattern, filter.PerPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []authz.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func scanRole(row pgx.Row) (authz.Role, error) {
	var role authz.Role
	var permissions []byte
	err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description, &permissions, &role.IsSystemRole, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return authz.Role{}, err
	}
	if len(permissions) > 0 {
		if err := json.Unmarshal(permissions, &role.Permissions); err != nil {
			return authz.Role{}, fmt.Errorf("roles: unmarshal permissions: %w", err)
		}
	}
	return role, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
