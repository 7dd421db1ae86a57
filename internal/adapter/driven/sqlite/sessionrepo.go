package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port interface.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo backed by the given DB.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Put inserts or replaces a session row.
func (r *SessionRepo) Put(ctx context.Context, s model.Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, email, name, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			email = excluded.email,
			name = excluded.name,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		s.ID, s.Identity.ID, s.Identity.Email, s.Identity.Name,
		s.CreatedAt.UTC().Format(time.RFC3339Nano),
		s.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID. Returns nil, nil if it does not exist.
func (r *SessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	const query = `
		SELECT id, user_id, email, name, created_at, expires_at
		FROM sessions
		WHERE id = ?
	`

	var s model.Session
	var createdAt, expiresAt string

	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Identity.ID, &s.Identity.Email, &s.Identity.Name,
		&createdAt, &expiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if s.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	return &s, nil
}

// Delete removes a session. Deleting a missing session is not an error so
// repeated sign-outs stay idempotent.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// DeleteExpired removes all sessions expiring before the given time.
func (r *SessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < ?`

	result, err := r.db.Writer.ExecContext(ctx, query, before.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return rows, nil
}
