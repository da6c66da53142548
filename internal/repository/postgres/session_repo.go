package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

const sessionColumns = `id, user_id, token, refresh_token, device_info, ip_address, user_agent,
	active, expires_at, created_at, last_activity`

// sessionRepository implements repository.SessionRepository for PostgreSQL.
type sessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Save upserts a session by ID.
func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			refresh_token = EXCLUDED.refresh_token,
			device_info = EXCLUDED.device_info,
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent,
			active = EXCLUDED.active,
			expires_at = EXCLUDED.expires_at,
			last_activity = EXCLUDED.last_activity
	`

	_, err := r.db.Pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.RefreshToken,
		session.DeviceInfo,
		session.IPAddress,
		session.UserAgent,
		session.Active,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by ID.
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	session, err := scanSession(r.db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListActiveByUserID returns the active, unexpired sessions for a user.
func (r *sessionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND active AND expires_at > now()
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Deactivate marks a session inactive.
func (r *sessionRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE sessions SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}

// DeactivateAllForUser marks all of a user's sessions inactive.
func (r *sessionRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions SET active = FALSE WHERE user_id = $1 AND active`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes sessions past their expiry.
func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	session := &domain.Session{}

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.DeviceInfo,
		&session.IPAddress,
		&session.UserAgent,
		&session.Active,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.LastActivity,
	)
	if err != nil {
		return nil, err
	}

	return session, nil
}
