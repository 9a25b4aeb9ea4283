// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"errors"
	"strings"

	"github.com/samber/oops"
)

// ErrMissingAuthorization is returned by ParseBearer for an empty header value.
var ErrMissingAuthorization = errors.New("missing authorization header")

const bearerScheme = "bearer"

// ParseBearer extracts the token from an Authorization header value of the
// form "Bearer <token>". The scheme is matched case-insensitively.
//
// An empty value returns ErrMissingAuthorization. Any other malformed value
// returns ErrTokenInvalid.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", oops.Code("AUTH_MISSING_AUTHORIZATION").Wrap(ErrMissingAuthorization)
	}

	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", invalidToken()
	}
	tok = strings.TrimSpace(tok)
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", invalidToken()
	}
	return tok, nil
}
