// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/auth"
)

var _ auth.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
// The sessions_user_id_key constraint keeps at most one row per user.
type SessionRepository struct {
	pool pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(p pool) *SessionRepository {
	return &SessionRepository{pool: p}
}

// GetByUserID retrieves the session of a user.
func (r *SessionRepository) GetByUserID(ctx context.Context, userID int64) (*auth.Session, error) {
	var s auth.Session
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, refresh_token_hash, created_at, expires_at
		FROM sessions
		WHERE user_id = $1
	`, userID).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by user").
			With("user_id", userID).
			Wrap(err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return &s, nil
}

// DeleteByUserID removes the session of a user. Deleting a missing session
// is not an error.
func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session by user").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// Replace makes session the user's only session in a single upsert, so
// concurrent logins for one user serialize on the row and the last writer
// wins. The row ID is written back to session.
func (r *SessionRepository) Replace(ctx context.Context, session *auth.Session) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sessions (user_id, refresh_token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET refresh_token_hash = EXCLUDED.refresh_token_hash,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
		RETURNING id
	`, session.UserID, session.TokenHash, session.CreatedAt, session.ExpiresAt).Scan(&session.ID)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.ForeignKeyViolation {
			return oops.Code("SESSION_REPLACE_FAILED").
				With("operation", "upsert session").
				With("user_id", session.UserID).
				Wrap(auth.ErrNotFound)
		}
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "upsert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}
