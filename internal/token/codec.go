// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package token signs and verifies the access and refresh JWTs issued by authcore.
//
// Access and refresh tokens are signed with independent HMAC secrets so that a
// leaked access secret cannot forge refresh tokens and the reverse. The codec is
// stateless: whether a refresh token is still the current one for its user is
// decided by the session manager, not here.
package token

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token lifetimes.
const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 15 * 24 * time.Hour
)

// DefaultIssuer is used when Config.Issuer is empty.
const DefaultIssuer = "authcore"

// ErrInvalid is returned for every verification failure: bad signature,
// malformed token, unexpected algorithm, expiry, or missing claims.
var ErrInvalid = errors.New("invalid token")

// Config holds the signing material for a Codec.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Claims is the payload carried by both token kinds.
type Claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access and refresh tokens.
type Codec struct {
	accessKey  []byte
	refreshKey []byte
	issuer     string
	now        func() time.Time
}

// New creates a Codec. Both secrets are required and must differ.
func New(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("access secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("refresh secret is required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("access and refresh secrets must differ")
	}

	c := &Codec{
		accessKey:  bytes.Clone(cfg.AccessSecret),
		refreshKey: bytes.Clone(cfg.RefreshSecret),
		issuer:     cfg.Issuer,
		now:        cfg.Now,
	}
	if c.issuer == "" {
		c.issuer = DefaultIssuer
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// SignAccess mints an access token for userID, valid for AccessTTL.
func (c *Codec) SignAccess(userID int64) (string, error) {
	tok, _, err := c.sign(userID, c.accessKey, AccessTTL)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("kind", "access").Wrap(err)
	}
	return tok, nil
}

// VerifyAccess checks an access token's signature and expiry.
func (c *Codec) VerifyAccess(tok string) (*Claims, error) {
	return c.verify(tok, c.accessKey)
}

// SignRefresh mints a refresh token for userID, valid for RefreshTTL.
// The returned claims carry the issued-at and expiry the token was signed with.
func (c *Codec) SignRefresh(userID int64) (string, *Claims, error) {
	tok, claims, err := c.sign(userID, c.refreshKey, RefreshTTL)
	if err != nil {
		return "", nil, oops.Code("TOKEN_SIGN_FAILED").With("kind", "refresh").Wrap(err)
	}
	return tok, claims, nil
}

// VerifyRefreshSignature checks a refresh token's signature and embedded expiry.
// It does not consult persisted sessions.
func (c *Codec) VerifyRefreshSignature(tok string) (*Claims, error) {
	return c.verify(tok, c.refreshKey)
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time {
	return c.now()
}

func (c *Codec) sign(userID int64, key []byte, ttl time.Duration) (string, *Claims, error) {
	if userID <= 0 {
		return "", nil, oops.Errorf("user id must be positive, got %d", userID)
	}

	now := c.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        ulid.Make().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", nil, err //nolint:wrapcheck // wrapped by callers with the token kind
	}
	return signed, claims, nil
}

func (c *Codec) verify(tok string, key []byte) (*Claims, error) {
	if tok == "" {
		return nil, ErrInvalid
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tok, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalid
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, ErrInvalid
	}
	return claims, nil
}
