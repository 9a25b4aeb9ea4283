// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Sentinel errors. Service errors wrap one of these, so callers can
// classify them with errors.Is or KindOf.
var (
	// ErrNotFound is returned by repositories when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when a registration hits the unique email constraint.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrTokenInvalid covers bad signatures, expiry, and session mismatch.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrInvalidInput is returned for malformed registration input.
	ErrInvalidInput = errors.New("invalid input")
)

// Error codes attached to oops errors.
const (
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeTokenInvalid       = "AUTH_TOKEN_INVALID"
	CodeInvalidInput       = "AUTH_INVALID_INPUT"
)

// Kind classifies an error returned by the auth core.
type Kind int

// Error kinds.
const (
	KindNone Kind = iota
	KindInternal
	KindConflict
	KindInvalidCredentials
	KindTokenInvalid
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindTokenInvalid:
		return "token_invalid"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// KindOf reports the kind of err. Any non-nil error that does not wrap one of
// the sentinel errors is KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmailTaken):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrTokenInvalid):
		return KindTokenInvalid
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func invalidToken() error {
	return oops.Code(CodeTokenInvalid).Wrap(ErrTokenInvalid)
}
