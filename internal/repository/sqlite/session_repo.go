package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

const sessionColumns = `id, user_id, token, refresh_token, device_info, ip_address, user_agent,
	active, expires_at, created_at, last_activity`

// sessionRepository implements repository.SessionRepository for SQLite.
type sessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Save upserts a session by ID.
func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	deviceJSON, err := json.Marshal(session.DeviceInfo)
	if err != nil {
		return fmt.Errorf("failed to encode device info: %w", err)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			refresh_token = excluded.refresh_token,
			device_info = excluded.device_info,
			ip_address = excluded.ip_address,
			user_agent = excluded.user_agent,
			active = excluded.active,
			expires_at = excluded.expires_at,
			last_activity = excluded.last_activity
	`

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.RefreshToken,
		string(deviceJSON),
		session.IPAddress,
		session.UserAgent,
		boolToInt(session.Active),
		session.ExpiresAt.Format(time.RFC3339),
		session.CreatedAt.Format(time.RFC3339),
		session.LastActivity.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by ID.
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	session, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListActiveByUserID returns the active, unexpired sessions for a user.
func (r *sessionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND active = 1 AND expires_at > ?
		ORDER BY created_at DESC`,
		userID, time.Now().UTC().Format(time.RFC3339),
	)
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
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}

// DeactivateAllForUser marks all of a user's sessions inactive.
func (r *sessionRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET active = 0 WHERE user_id = ? AND active = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// DeleteExpired removes sessions past their expiry.
func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func scanSession(row rowScanner) (*domain.Session, error) {
	session := &domain.Session{}
	var (
		deviceJSON               string
		active                   int
		expiresAt, createdAt, la string
	)

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&deviceJSON,
		&session.IPAddress,
		&session.UserAgent,
		&active,
		&expiresAt,
		&createdAt,
		&la,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(deviceJSON), &session.DeviceInfo); err != nil {
		return nil, fmt.Errorf("failed to decode device info: %w", err)
	}
	session.Active = active != 0
	session.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	session.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	session.LastActivity, _ = time.Parse(time.RFC3339, la)

	return session, nil
}
