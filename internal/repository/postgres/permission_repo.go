package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

const permissionColumns = `id, user_id, name, type, scope, resource, granted_at, granted_by, expires_at, active`

// permissionRepository implements repository.PermissionRepository for PostgreSQL.
type permissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new PostgreSQL permission repository.
func NewPermissionRepository(db *DB) repository.PermissionRepository {
	return &permissionRepository{db: db}
}

// Save upserts a permission grant by ID.
func (r *permissionRepository) Save(ctx context.Context, perm *domain.Permission) error {
	query := `
		INSERT INTO permissions (` + permissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			scope = EXCLUDED.scope,
			resource = EXCLUDED.resource,
			granted_by = EXCLUDED.granted_by,
			expires_at = EXCLUDED.expires_at,
			active = EXCLUDED.active
	`

	_, err := r.db.Pool.Exec(ctx, query,
		perm.ID,
		perm.UserID,
		perm.Name,
		string(perm.Type),
		string(perm.Scope),
		perm.Resource,
		perm.GrantedAt,
		perm.GrantedBy,
		perm.ExpiresAt,
		perm.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save permission: %w", err)
	}

	return nil
}

// GetByID retrieves a permission grant by ID.
func (r *permissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	perm, err := scanPermission(r.db.Pool.QueryRow(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return perm, nil
}

// ListByUserID returns all permission grants for a user, newest first.
func (r *permissionRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Permission, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE user_id = $1 ORDER BY granted_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []*domain.Permission
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// ReplaceForUser atomically replaces all permission grants for a user.
func (r *permissionRepository) ReplaceForUser(ctx context.Context, userID string, perms []*domain.Permission) error {
	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM permissions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear permissions: %w", err)
		}
		for _, perm := range perms {
			_, err := tx.Exec(ctx, `
				INSERT INTO permissions (`+permissionColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				perm.ID,
				userID,
				perm.Name,
				string(perm.Type),
				string(perm.Scope),
				perm.Resource,
				perm.GrantedAt,
				perm.GrantedBy,
				perm.ExpiresAt,
				perm.Active,
			)
			if err != nil {
				return fmt.Errorf("failed to insert permission: %w", err)
			}
		}
		return nil
	})
}

// Deactivate marks a permission grant inactive.
func (r *permissionRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE permissions SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate permission: %w", err)
	}
	return nil
}

func scanPermission(row pgx.Row) (*domain.Permission, error) {
	perm := &domain.Permission{}
	var typ, scope string

	err := row.Scan(
		&perm.ID,
		&perm.UserID,
		&perm.Name,
		&typ,
		&scope,
		&perm.Resource,
		&perm.GrantedAt,
		&perm.GrantedBy,
		&perm.ExpiresAt,
		&perm.Active,
	)
	if err != nil {
		return nil, err
	}

	perm.Type = domain.PermissionType(typ)
	perm.Scope = domain.PermissionScope(scope)
	return perm, nil
}
