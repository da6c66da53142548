package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

const permissionColumns = `id, user_id, name, type, scope, resource, granted_at, granted_by, expires_at, active`

// permissionRepository implements repository.PermissionRepository for SQLite.
type permissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new SQLite permission repository.
func NewPermissionRepository(db *DB) repository.PermissionRepository {
	return &permissionRepository{db: db}
}

// Save upserts a permission grant by ID.
func (r *permissionRepository) Save(ctx context.Context, perm *domain.Permission) error {
	var expiresAt any
	if perm.ExpiresAt != nil {
		expiresAt = perm.ExpiresAt.Format(time.RFC3339)
	}

	query := `
		INSERT INTO permissions (` + permissionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			scope = excluded.scope,
			resource = excluded.resource,
			granted_by = excluded.granted_by,
			expires_at = excluded.expires_at,
			active = excluded.active
	`

	_, err := r.db.ExecContext(ctx, query,
		perm.ID,
		perm.UserID,
		perm.Name,
		string(perm.Type),
		string(perm.Scope),
		perm.Resource,
		perm.GrantedAt.Format(time.RFC3339),
		perm.GrantedBy,
		expiresAt,
		boolToInt(perm.Active),
	)
	if err != nil {
		return fmt.Errorf("failed to save permission: %w", err)
	}

	return nil
}

// GetByID retrieves a permission grant by ID.
func (r *permissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	perm, err := scanPermission(r.db.QueryRowContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return perm, nil
}

// ListByUserID returns all permission grants for a user, newest first.
func (r *permissionRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE user_id = ? ORDER BY granted_at DESC`, userID)
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
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM permissions WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear permissions: %w", err)
		}
		for _, perm := range perms {
			var expiresAt any
			if perm.ExpiresAt != nil {
				expiresAt = perm.ExpiresAt.Format(time.RFC3339)
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO permissions (`+permissionColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				perm.ID,
				userID,
				perm.Name,
				string(perm.Type),
				string(perm.Scope),
				perm.Resource,
				perm.GrantedAt.Format(time.RFC3339),
				perm.GrantedBy,
				expiresAt,
				boolToInt(perm.Active),
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
	_, err := r.db.ExecContext(ctx,
		`UPDATE permissions SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate permission: %w", err)
	}
	return nil
}

func scanPermission(row rowScanner) (*domain.Permission, error) {
	perm := &domain.Permission{}
	var (
		typ, scope string
		grantedAt  string
		expiresAt  sql.NullString
		active     int
	)

	err := row.Scan(
		&perm.ID,
		&perm.UserID,
		&perm.Name,
		&typ,
		&scope,
		&perm.Resource,
		&grantedAt,
		&perm.GrantedBy,
		&expiresAt,
		&active,
	)
	if err != nil {
		return nil, err
	}

	perm.Type = domain.PermissionType(typ)
	perm.Scope = domain.PermissionScope(scope)
	perm.Active = active != 0
	perm.GrantedAt, _ = time.Parse(time.RFC3339, grantedAt)
	if expiresAt.Valid {
		if t, err := time.Parse(time.RFC3339, expiresAt.String); err == nil {
			perm.ExpiresAt = &t
		}
	}

	return perm, nil
}
