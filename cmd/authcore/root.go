// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/logging"
	"github.com/authcore/authcore/internal/observability"
	"github.com/authcore/authcore/internal/token"
	"github.com/authcore/authcore/pkg/errutil"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	deps Deps

	configFile  string
	showMetrics bool

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
}

// NewRootCmd creates the root command for the authcore CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(Deps{})
}

func newRootCmd(deps Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults()}
	a.registry, a.metrics = observability.NewRegistry()

	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "authcore - email and password authentication with JWT sessions",
		Long: `authcore registers users, authenticates them by email and password,
and issues short-lived access tokens and long-lived refresh tokens.
Each user holds at most one live refresh token; logging in again
invalidates the previous one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/authcore/config.yaml)")
	flags.String("database-url", "", "PostgreSQL connection URL (env DATABASE_URL)")
	flags.String("log-format", logging.FormatJSON, "log format: json or text")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.BoolVar(&a.showMetrics, "metrics", false, "write command metrics to stderr in Prometheus text format")

	cmd.AddCommand(
		newMigrateCmd(a),
		newRegisterCmd(a),
		newLoginCmd(a),
		newVerifyAccessCmd(a),
		newVerifyRefreshCmd(a),
		newRefreshCmd(a),
		newLogoutCmd(a),
	)
	return cmd
}

// runE loads configuration before fn runs and dumps metrics after it, even
// when fn fails. Internal errors are logged in full; stderr only gets
// internalMessage for them.
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.setup(cmd); err != nil {
			return err
		}
		if a.showMetrics {
			defer func() {
				if werr := observability.WriteText(cmd.ErrOrStderr(), a.registry); werr != nil && err == nil {
					err = werr
				}
			}()
		}
		defer func() {
			if exitCode(err) == exitInternal {
				errutil.LogError(cmd.Context(), a.logger, "command failed", err, "command", cmd.CommandPath())
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{File: a.configFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Service: "authcore",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "set up logging").Wrap(err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) codec() (*token.Codec, error) {
	tc, err := a.cfg.TokenConfig()
	if err != nil {
		return nil, err
	}
	return token.New(tc)
}

// service wires an auth.Service to the configured stores. The returned
// function releases them.
func (a *app) service(ctx context.Context) (*auth.Service, func(), error) {
	codec, err := a.codec()
	if err != nil {
		return nil, nil, err
	}
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}

	repos, err := a.deps.OpenRepositories(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if repos.Close != nil {
			repos.Close()
		}
	}

	opts := []auth.Option{auth.WithLogger(a.logger), auth.WithMetrics(a.metrics)}
	sessions, err := auth.NewSessionManager(repos.Sessions, codec, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	svc, err := auth.NewAuthService(repos.Users, sessions, codec, a.deps.Hasher, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}
