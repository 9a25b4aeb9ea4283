// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"context"

	"github.com/authcore/authcore/internal/auth"
	authpg "github.com/authcore/authcore/internal/auth/postgres"
	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/store"
)

// Repositories are the stores behind an auth.Service.
type Repositories struct {
	Users    auth.UserRepository
	Sessions auth.SessionRepository
	// Close releases the underlying connections. May be nil.
	Close func()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Status() (*store.Status, error)
	Force(version int) error
	Close() error
}

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenRepositories connects the user and session stores.
	// Default: PostgreSQL repositories over store.Open.
	OpenRepositories func(ctx context.Context, cfg *config.Config) (*Repositories, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// Hasher hashes and verifies passwords.
	// Default: auth.NewBcryptHasher
	Hasher auth.PasswordHasher
}

func (d Deps) withDefaults() Deps {
	if d.OpenRepositories == nil {
		d.OpenRepositories = openPostgres
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (Migrator, error) {
			m, err := store.NewMigrator(databaseURL)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if d.Hasher == nil {
		d.Hasher = auth.NewBcryptHasher()
	}
	return d
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	pool, err := store.Open(ctx, cfg.DatabaseURL, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Users:    authpg.NewUserRepository(pool),
		Sessions: authpg.NewSessionRepository(pool),
		Close:    pool.Close,
	}, nil
}
