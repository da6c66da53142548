package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

const userColumns = `id, email, username, full_name, password_hash, role, status,
	email_verified, phone, department, permissions, metadata, created_at, updated_at, last_login`

// userRepository implements repository.UserRepository for PostgreSQL.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Save upserts a user by ID in a single write.
func (r *userRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			email_verified = EXCLUDED.email_verified,
			phone = EXCLUDED.phone,
			department = EXCLUDED.department,
			permissions = EXCLUDED.permissions,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at,
			last_login = EXCLUDED.last_login
	`

	_, err := r.db.Pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.FullName,
		user.PasswordHash,
		string(user.Role),
		string(user.Status),
		user.EmailVerified,
		user.Phone,
		user.Department,
		user.Permissions,
		user.Metadata,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLogin,
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
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by normalized email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

// GetByUsername retrieves a user by normalized username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, strings.ToLower(username))
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ExistsByEmail checks if a user with the given email exists.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, strings.ToLower(email))
}

// ExistsByUsername checks if a user with the given username exists.
// Usernames are stored lowercase, so the check is case-insensitive.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, strings.ToLower(username))
}

func (r *userRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// Delete deletes a user by ID.
func (r *userRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns users with pagination and optional exact-match filters.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	where, args := buildFilters(opts.Filters)
	query += where + fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	return r.queryUsers(ctx, query, args...)
}

// Count returns the number of users matching the filters.
func (r *userRepository) Count(ctx context.Context, filters map[string]string) (int64, error) {
	query := `SELECT COUNT(*) FROM users`
	where, args := buildFilters(filters)
	query += where

	var n int64
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// GetByRole returns all users with the given role.
func (r *userRepository) GetByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	return r.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at DESC`,
		string(role),
	)
}

// Search matches users by name, email or username substring.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	return r.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email LIKE $1 OR username LIKE $1 OR LOWER(full_name) LIKE $1
		ORDER BY created_at DESC LIMIT $2`,
		pattern, limit,
	)
}

func (r *userRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
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
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var role, status string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.PasswordHash,
		&role,
		&status,
		&user.EmailVerified,
		&user.Phone,
		&user.Department,
		&user.Permissions,
		&user.Metadata,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, err
	}

	user.Role = domain.Role(role)
	user.Status = domain.Status(status)
	return user, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
