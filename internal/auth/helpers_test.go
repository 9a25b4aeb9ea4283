// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/auth/memory"
	"github.com/authcore/authcore/internal/auth/mocks"
	"github.com/authcore/authcore/internal/token"
)

// fakeClock is a settable, goroutine-safe time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCodec(t *testing.T, clock *fakeClock) *token.Codec {
	t.Helper()
	codec, err := token.New(token.Config{
		AccessSecret:  []byte("test-access-secret-0123456789abcdef0123"),
		RefreshSecret: []byte("test-refresh-secret-0123456789abcdef012"),
		Now:           clock.Now,
	})
	require.NoError(t, err)
	return codec
}

// testDummyHash is what newMockHasher returns for the hash NewAuthService
// computes at construction.
const testDummyHash = "$2a$10$dummy"

// newMockHasher returns a mock hasher that already expects the one Hash call
// NewAuthService makes.
func newMockHasher(t *testing.T) *mocks.MockPasswordHasher {
	t.Helper()
	h := mocks.NewMockPasswordHasher(t)
	h.On("Hash", mock.AnythingOfType("string")).Return(testDummyHash, nil).Once()
	return h
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stack is a Service wired to in-memory stores.
type stack struct {
	clock    *fakeClock
	codec    *token.Codec
	users    *memory.UserRepository
	sessions *memory.SessionRepository
	manager  *auth.SessionManager
	svc      *auth.Service
}

func newStack(t *testing.T, opts ...auth.Option) *stack {
	t.Helper()
	s := &stack{clock: newFakeClock()}
	s.codec = newTestCodec(t, s.clock)
	s.users = memory.NewUserRepository()
	s.sessions = memory.NewSessionRepository(s.users)

	opts = append([]auth.Option{auth.WithLogger(discardLogger())}, opts...)

	var err error
	s.manager, err = auth.NewSessionManager(s.sessions, s.codec, opts...)
	require.NoError(t, err)
	s.svc, err = auth.NewAuthService(s.users, s.manager, s.codec, auth.NewBcryptHasher(), opts...)
	require.NoError(t, err)
	return s
}
