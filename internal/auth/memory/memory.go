// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package memory provides in-process implementations of the auth repositories.
// They hold the same uniqueness guarantees as the PostgreSQL schema and are
// meant for tests and single-process embedding.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/auth"
)

var (
	_ auth.UserRepository    = (*UserRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
)

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*auth.User
	byEmail map[string]int64
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]*auth.User),
		byEmail: make(map[string]int64),
	}
}

// Create stores a new user and assigns its ID.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return oops.Code("USER_CREATE_FAILED").
			With("email", user.Email).
			Wrap(auth.ErrEmailTaken)
	}

	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	u := *r.byID[id]
	return &u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	u := *stored
	return &u, nil
}

// SessionRepository implements auth.SessionRepository in memory.
type SessionRepository struct {
	mu       sync.RWMutex
	nextID   int64
	byUserID map[int64]*auth.Session
	users    *UserRepository
}

// NewSessionRepository creates an empty SessionRepository. If users is not
// nil, Replace rejects sessions for unknown users the way the foreign key does.
func NewSessionRepository(users *UserRepository) *SessionRepository {
	return &SessionRepository{
		byUserID: make(map[int64]*auth.Session),
		users:    users,
	}
}

// GetByUserID retrieves the session for a user.
func (r *SessionRepository) GetByUserID(_ context.Context, userID int64) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byUserID[userID]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	s := *stored
	return &s, nil
}

// DeleteByUserID removes the user's session if present.
func (r *SessionRepository) DeleteByUserID(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byUserID, userID)
	return nil
}

// Replace swaps in the given session for its user.
func (r *SessionRepository) Replace(ctx context.Context, session *auth.Session) error {
	if r.users != nil {
		if _, err := r.users.GetByID(ctx, session.UserID); err != nil {
			return oops.Code("SESSION_REPLACE_FAILED").
				With("user_id", session.UserID).
				Wrap(err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for uid, other := range r.byUserID {
		if uid != session.UserID && other.TokenHash == session.TokenHash {
			return oops.Code("SESSION_REPLACE_FAILED").
				With("user_id", session.UserID).
				Errorf("refresh token hash already in use")
		}
	}

	r.nextID++
	session.ID = r.nextID
	stored := *session
	r.byUserID[stored.UserID] = &stored
	return nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUserID)
}

// SetExpiry overwrites the persisted expiry of a user's session.
// Returns auth.ErrNotFound if the user has no session.
func (r *SessionRepository) SetExpiry(userID int64, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byUserID[userID]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
	}
	stored.ExpiresAt = expiresAt
	return nil
}
