// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/authcore/authcore/internal/observability"
	"github.com/authcore/authcore/internal/token"
	"github.com/authcore/authcore/pkg/errutil"
)

// SessionManager issues, validates and revokes refresh tokens. It is the only
// writer to the session store.
type SessionManager struct {
	sessions SessionRepository
	codec    *token.Codec
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewSessionManager creates a SessionManager. Time is taken from the codec's clock.
func NewSessionManager(sessions SessionRepository, codec *token.Codec, opts ...Option) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("sessions repository is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("token codec is required")
	}
	o := buildOptions(opts)
	if o.logger == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("logger is required")
	}

	return &SessionManager{
		sessions: sessions,
		codec:    codec,
		logger:   o.logger,
		metrics:  o.metrics,
	}, nil
}

// Issue mints a refresh token for userID and makes it the user's only live
// session, replacing any previous one. On error no token is returned and the
// caller must not assume the previous session survived.
func (m *SessionManager) Issue(ctx context.Context, userID int64) (string, error) {
	ctx, span := tracer.Start(ctx, "SessionManager.Issue")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	tok, claims, err := m.codec.SignRefresh(userID)
	if err != nil {
		span.SetStatus(codes.Error, "sign refresh token")
		return "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "sign refresh token").
			With("user_id", userID).
			Wrap(err)
	}

	session, err := NewSession(userID, HashRefreshToken(tok), claims.IssuedAt.Time, claims.ExpiresAt.Time)
	if err != nil {
		span.SetStatus(codes.Error, "build session")
		return "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "build session").
			With("user_id", userID).
			Wrap(err)
	}

	if err := m.sessions.Replace(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace session")
		return "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "replace session").
			With("user_id", userID).
			Wrap(err)
	}

	m.metrics.RecordSessionIssued()
	m.logger.DebugContext(ctx, "refresh session issued",
		"user_id", userID,
		"session_id", session.ID,
		"expires_at", session.ExpiresAt,
	)
	return tok, nil
}

// Validate checks a refresh token against its signature, its embedded expiry,
// and the user's persisted session: the row must exist, be unexpired, and hold
// this exact token. Returns the token's user ID.
//
// Every rejection is ErrTokenInvalid. Store failures are internal errors.
func (m *SessionManager) Validate(ctx context.Context, tok string) (int64, error) {
	ctx, span := tracer.Start(ctx, "SessionManager.Validate")
	defer span.End()

	claims, err := m.codec.VerifyRefreshSignature(tok)
	if err != nil {
		m.metrics.RecordVerification(observability.TokenRefresh, observability.ResultInvalid)
		return 0, invalidToken()
	}
	span.SetAttributes(attribute.Int64("user.id", claims.UserID))

	session, err := m.sessions.GetByUserID(ctx, claims.UserID)
	if errors.Is(err, ErrNotFound) {
		m.metrics.RecordVerification(observability.TokenRefresh, observability.ResultInvalid)
		return 0, invalidToken()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get session")
		m.metrics.RecordVerification(observability.TokenRefresh, observability.ResultError)
		return 0, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by user").
			With("user_id", claims.UserID).
			Wrap(err)
	}

	if session.IsExpiredAt(m.codec.Now()) || !session.Matches(tok) {
		m.metrics.RecordVerification(observability.TokenRefresh, observability.ResultInvalid)
		return 0, invalidToken()
	}

	m.metrics.RecordVerification(observability.TokenRefresh, observability.ResultSuccess)
	return claims.UserID, nil
}

// Revoke deletes the user's session, if any.
func (m *SessionManager) Revoke(ctx context.Context, userID int64) error {
	ctx, span := tracer.Start(ctx, "SessionManager.Revoke")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	if err := m.sessions.DeleteByUserID(ctx, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete session")
		err = oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "delete session").
			With("user_id", userID).
			Wrap(err)
		errutil.LogError(ctx, m.logger, "session revoke failed", err)
		return err
	}

	m.metrics.RecordSessionRevoked()
	return nil
}
