// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Session binds a user to their single current refresh token.
type Session struct {
	ID        int64
	UserID    int64
	TokenHash string // SHA-256 of the refresh token, hex-encoded
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession creates a validated, not yet persisted Session.
func NewSession(userID int64, tokenHash string, createdAt, expiresAt time.Time) (*Session, error) {
	if userID <= 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID must be positive")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").
			With("created_at", createdAt).
			With("expires_at", expiresAt).
			Errorf("expiry must be after creation")
	}

	return &Session{
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: createdAt.UTC(),
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// IsExpiredAt reports whether the session has expired at t.
// A session is no longer live from the instant ExpiresAt is reached.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Matches reports whether tok is the refresh token this session was issued for.
func (s *Session) Matches(tok string) bool {
	if tok == "" || s.TokenHash == "" {
		return false
	}
	computed := HashRefreshToken(tok)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(s.TokenHash)) == 1
}

// HashRefreshToken computes the SHA-256 of a refresh token. Only the hash is
// persisted.
func HashRefreshToken(tok string) string {
	h := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(h[:])
}

// SessionRepository is the session store. It holds at most one row per user.
type SessionRepository interface {
	// GetByUserID retrieves the session for a user.
	// Returns ErrNotFound if the user has no session.
	GetByUserID(ctx context.Context, userID int64) (*Session, error)

	// DeleteByUserID removes the user's session. Deleting a missing session is not an error.
	DeleteByUserID(ctx context.Context, userID int64) error

	// Replace atomically swaps the user's session for the given one, creating
	// it if none exists, and sets session.ID. Concurrent calls for one user
	// leave exactly one row: the last writer's.
	Replace(ctx context.Context, session *Session) error
}
