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

// dummyPassword is hashed when a Service is built so that logins for unknown
// emails pay for exactly one bcrypt comparison, like a wrong password does.
const dummyPassword = "authcore-dummy-password" //nolint:gosec // not a credential

// LoginResult is returned by a successful Login.
type LoginResult struct {
	UserID       int64
	AccessToken  string
	RefreshToken string
}

// Service provides the register, login and token verification operations.
type Service struct {
	users    UserRepository
	sessions *SessionManager
	codec    *token.Codec
	hasher   PasswordHasher
	logger   *slog.Logger
	metrics  *observability.Metrics

	dummyHash string
}

// NewAuthService creates a new Service.
func NewAuthService(users UserRepository, sessions *SessionManager, codec *token.Codec, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("session manager is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("token codec is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("password hasher is required")
	}
	o := buildOptions(opts)
	if o.logger == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("logger is required")
	}

	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").
			With("operation", "prepare dummy password hash").
			Wrap(err)
	}

	return &Service{
		users:     users,
		sessions:  sessions,
		codec:     codec,
		hasher:    hasher,
		logger:    o.logger,
		metrics:   o.metrics,
		dummyHash: dummyHash,
	}, nil
}

// Register creates a user with a hashed password. A duplicate email is
// reported by the store's unique constraint and returned as ErrEmailTaken.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	ctx, span := tracer.Start(ctx, "Service.Register")
	defer span.End()

	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		s.metrics.RecordRegistration(observability.ResultInvalidInput)
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			s.metrics.RecordRegistration(observability.ResultInvalidInput)
			return nil, err
		}
		return nil, s.registerFailed(ctx, "hash password", err)
	}

	user, err := NewUser(email, hash, s.codec.Now())
	if err != nil {
		return nil, s.registerFailed(ctx, "build user", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.metrics.RecordRegistration(observability.ResultConflict)
			return nil, oops.Code(CodeEmailTaken).Wrap(ErrEmailTaken)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create user")
		return nil, s.registerFailed(ctx, "create user", err)
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	s.metrics.RecordRegistration(observability.ResultSuccess)
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *Service) registerFailed(ctx context.Context, operation string, err error) error {
	s.metrics.RecordRegistration(observability.ResultError)
	err = oops.Code("AUTH_REGISTER_FAILED").With("operation", operation).Wrap(err)
	errutil.LogError(ctx, s.logger, "registration failed", err)
	return err
}

// Login authenticates a user and issues a fresh access token and refresh
// token, rotating out any previous refresh token. An unknown email and a wrong
// password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "Service.Login")
	defer span.End()

	user, lookupErr := s.users.GetByEmail(ctx, NormalizeEmail(email))

	var targetHash string
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = s.dummyHash
	default:
		return nil, s.loginFailed(ctx, "get user by email", lookupErr)
	}

	// Always verify so unknown emails take as long as wrong passwords.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && userExists {
		return nil, s.loginFailed(ctx, "verify password", verifyErr)
	}
	if !userExists || !valid {
		s.metrics.RecordLogin(observability.ResultInvalidCredentials)
		return nil, invalidCredentials()
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	// Sign the access token first so a signing failure leaves the session untouched.
	access, err := s.codec.SignAccess(user.ID)
	if err != nil {
		return nil, s.loginFailed(ctx, "sign access token", err)
	}

	refresh, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, s.loginFailed(ctx, "issue refresh token", err)
	}

	s.metrics.RecordLogin(observability.ResultSuccess)
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, operation string, err error) error {
	s.metrics.RecordLogin(observability.ResultError)
	err = oops.Code("AUTH_LOGIN_FAILED").With("operation", operation).Wrap(err)
	errutil.LogError(ctx, s.logger, "login failed", err)
	return err
}

// VerifyAccess checks an access token and returns its user ID.
// Any failure is ErrTokenInvalid.
func (s *Service) VerifyAccess(ctx context.Context, tok string) (int64, error) {
	_, span := tracer.Start(ctx, "Service.VerifyAccess")
	defer span.End()

	claims, err := s.codec.VerifyAccess(tok)
	if err != nil {
		s.metrics.RecordVerification(observability.TokenAccess, observability.ResultInvalid)
		return 0, invalidToken()
	}

	span.SetAttributes(attribute.Int64("user.id", claims.UserID))
	s.metrics.RecordVerification(observability.TokenAccess, observability.ResultSuccess)
	return claims.UserID, nil
}

// VerifyRefresh reports whether tok is the live refresh token of its user.
// It never rotates the token. Store failures are logged and reported as false.
func (s *Service) VerifyRefresh(ctx context.Context, tok string) bool {
	_, err := s.sessions.Validate(ctx, tok)
	if err != nil && KindOf(err) == KindInternal {
		errutil.LogError(ctx, s.logger, "refresh verification failed", err)
	}
	return err == nil
}

// Refresh validates a refresh token and returns a new access token for its
// user. The refresh token itself stays valid.
func (s *Service) Refresh(ctx context.Context, tok string) (string, error) {
	ctx, span := tracer.Start(ctx, "Service.Refresh")
	defer span.End()

	userID, err := s.sessions.Validate(ctx, tok)
	if err != nil {
		if KindOf(err) == KindInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validate refresh token")
			errutil.LogError(ctx, s.logger, "refresh failed", err)
		}
		return "", err
	}

	access, err := s.codec.SignAccess(userID)
	if err != nil {
		err = oops.Code("AUTH_REFRESH_FAILED").With("operation", "sign access token").Wrap(err)
		errutil.LogError(ctx, s.logger, "refresh failed", err)
		return "", err
	}
	return access, nil
}

// Logout revokes the user's refresh session. Access tokens already issued
// stay valid until they expire.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", userID)
	return nil
}
