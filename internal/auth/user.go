// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/samber/oops"
)

// MaxEmailLength matches the length limit most mail systems enforce.
const MaxEmailLength = 254

// User is a registered account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// Both registration and login look users up by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address such as "a@example.com".
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidInput).Wrapf(ErrInvalidInput, "email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code(CodeInvalidInput).
			With("max", MaxEmailLength).
			Wrapf(ErrInvalidInput, "email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return oops.Code(CodeInvalidInput).Wrapf(ErrInvalidInput, "email is not a valid address")
	}
	return nil
}

// NewUser creates a validated, not yet persisted User. The email is normalized
// before validation. ID is assigned by the repository on Create.
func NewUser(email, passwordHash string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidInput).Wrapf(ErrInvalidInput, "password hash cannot be empty")
	}

	now = now.UTC()
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserRepository is the credential store.
type UserRepository interface {
	// Create inserts a new user and sets its ID.
	// Returns an error wrapping ErrEmailTaken if the email is already registered.
	Create(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by normalized email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)
}
