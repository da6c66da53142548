package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

const userColumns = `id, email, username, full_name, password_hash, role, status,
	email_verified, phone, department, permissions, metadata, created_at, updated_at, last_login`

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Save upserts a user by ID in a single write.
func (r *userRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	permsJSON, err := json.Marshal(user.Permissions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode permissions: %w", err)
	}
	metaJSON, err := json.Marshal(user.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	var lastLogin any
	if user.LastLogin != nil {
		lastLogin = user.LastLogin.Format(time.RFC3339)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			username = excluded.username,
			full_name = excluded.full_name,
			password_hash = excluded.password_hash,
			role = excluded.role,
			status = excluded.status,
			email_verified = excluded.email_verified,
			phone = excluded.phone,
			department = excluded.department,
			permissions = excluded.permissions,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at,
			last_login = excluded.last_login
	`

	_, err = r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.FullName,
		user.PasswordHash,
		string(user.Role),
		string(user.Status),
		boolToInt(user.EmailVerified),
		user.Phone,
		user.Department,
		string(permsJSON),
		string(metaJSON),
		user.CreatedAt.Format(time.RFC3339),
		user.UpdatedAt.Format(time.RFC3339),
		lastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email or username already exists", repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail retrieves a user by normalized email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
}

// GetByUsername retrieves a user by normalized username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, strings.ToLower(username))
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ExistsByEmail checks if a user with the given email exists.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE email = ?`, strings.ToLower(email))
}

// ExistsByUsername checks if a user with the given username exists.
// Usernames are stored lowercase, so the check is case-insensitive.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE username = ?`, strings.ToLower(username))
}

func (r *userRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return true, nil
}

// Delete deletes a user by ID.
func (r *userRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// List returns users with pagination and optional exact-match filters.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	where, args := buildFilters(opts.Filters)
	query += where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	return r.queryUsers(ctx, query, args...)
}

// Count returns the number of users matching the filters.
func (r *userRepository) Count(ctx context.Context, filters map[string]string) (int64, error) {
	query := `SELECT COUNT(*) FROM users`
	where, args := buildFilters(filters)
	query += where

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// GetByRole returns all users with the given role.
func (r *userRepository) GetByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	return r.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY created_at DESC`,
		string(role),
	)
}

// Search matches users by name, email or username substring.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	return r.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email LIKE ? OR username LIKE ? OR LOWER(full_name) LIKE ?
		ORDER BY created_at DESC LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
}

func (r *userRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// buildFilters translates the filter map into a WHERE clause. Only
// known columns are allowed so the filter map can never inject SQL.
func buildFilters(filters map[string]string) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	allowed := map[string]string{
		"role":       "role",
		"status":     "status",
		"department": "department",
	}
	var clauses []string
	var args []any
	for key, value := range filters {
		col, ok := allowed[key]
		if !ok {
			continue
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, value)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// rowScanner abstracts sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var (
		emailVerified        int
		role, status         string
		permsJSON, metaJSON  string
		createdAt, updatedAt string
		lastLogin            sql.NullString
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.PasswordHash,
		&role,
		&status,
		&emailVerified,
		&user.Phone,
		&user.Department,
		&permsJSON,
		&metaJSON,
		&createdAt,
		&updatedAt,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}

	user.Role = domain.Role(role)
	user.Status = domain.Status(status)
	user.EmailVerified = emailVerified != 0
	if err := json.Unmarshal([]byte(permsJSON), &user.Permissions); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &user.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if lastLogin.Valid {
		if t, err := time.Parse(time.RFC3339, lastLogin.String); err == nil {
			user.LastLogin = &t
		}
	}

	return user, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
