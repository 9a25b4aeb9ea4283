// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package auth implements the authcore credential and session lifecycle.
//
// # Domain Types
//
// User and Session should be created through their constructors:
//   - NewUser - normalizes and validates the email, requires a password hash
//   - NewSession - requires a user, a refresh token hash and a future expiry
//
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
//   - SessionManager - issues, validates and revokes refresh tokens; the only
//     writer to the session store
//   - Service - Register, Login, VerifyAccess, VerifyRefresh, Refresh, Logout
//
// Errors returned by both wrap the sentinel errors in errors.go; use KindOf to
// classify them.
package auth
