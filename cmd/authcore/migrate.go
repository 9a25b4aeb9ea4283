// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the users and sessions schema.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
				return a.withMigrator(func(m Migrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			}),
		},
		newMigrateDownCmd(a),
		&cobra.Command{
			Use:   "status",
			Short: "Show the schema version and pending migrations",
			Args:  cobra.NoArgs,
			RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
				return a.withMigrator(func(m Migrator) error {
					st, err := m.Status()
					if err != nil {
						return err
					}
					printStatus(cmd, st)
					return nil
				})
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations",
			Long: `Record VERSION as applied and clear the dirty flag. Use only after
repairing a failed migration by hand.`,
			Args: cobra.ExactArgs(1),
			RunE: a.runE(func(cmd *cobra.Command, args []string) error {
				v, err := parseForceVersion(args[0])
				if err != nil {
					return err
				}
				return a.withMigrator(func(m Migrator) error {
					if err := m.Force(v); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "schema version forced to %d\n", v)
					return nil
				})
			}),
		},
	)
	return cmd
}

func newMigrateDownCmd(a *app) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all users and sessions",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return oops.Code("CONFIRMATION_REQUIRED").
					Errorf("migrate down drops all users and sessions; pass --yes to confirm")
			}
			return a.withMigrator(func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		}),
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the rollback")
	return cmd
}

func (a *app) withMigrator(fn func(m Migrator) error) (err error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return err
	}
	m, err := a.deps.MigratorFactory(a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			a.logger.Warn("failed to close migrator", "error", cerr)
		}
	}()
	return fn(m)
}

func printStatus(cmd *cobra.Command, st *store.Status) {
	out := cmd.OutOrStdout()
	name, err := store.MigrationName(st.Version)
	if err != nil || name == "" {
		name = "none"
	}
	fmt.Fprintf(out, "version: %d (%s)\n", st.Version, name)
	fmt.Fprintf(out, "dirty: %t\n", st.Dirty)
	if len(st.Pending) == 0 {
		fmt.Fprintln(out, "pending: none")
		return
	}
	pending := make([]string, len(st.Pending))
	for i, v := range st.Pending {
		pending[i] = strconv.FormatUint(uint64(v), 10)
	}
	fmt.Fprintf(out, "pending: %s\n", strings.Join(pending, ", "))
}

// parseForceVersion parses a non-negative migration version.
func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer, got %q", s)
	}
	if v < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative, got %d", v)
	}
	return v, nil
}
