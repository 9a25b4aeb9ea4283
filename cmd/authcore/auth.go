// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/observability"
)

// errRefreshInvalid makes verify-refresh exit non-zero for a rejected token.
var errRefreshInvalid = errors.New("refresh token is not valid")

type credentials struct {
	email    string
	password string
}

func (c *credentials) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "account email address")
	cmd.Flags().StringVar(&c.password, "password", "", "account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag is defined above
}

// resolvePassword returns the --password value, or the first line of stdin.
func (c *credentials) resolvePassword(cmd *cobra.Command) (string, error) {
	if c.password != "" {
		return c.password, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("INPUT_READ_FAILED").With("operation", "read password from stdin").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newRegisterCmd(a *app) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			password, err := creds.resolvePassword(cmd)
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			user, err := svc.Register(cmd.Context(), creds.email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d\n", user.ID)
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and print an access token and a refresh token",
		Long: `Authenticate with email and password. The printed refresh token
replaces any refresh token previously issued to the user.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			password, err := creds.resolvePassword(cmd)
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := svc.Login(cmd.Context(), creds.email, password)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user_id: %d\n", res.UserID)
			fmt.Fprintf(out, "access_token: %s\n", res.AccessToken)
			fmt.Fprintf(out, "refresh_token: %s\n", res.RefreshToken)
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newVerifyAccessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-access TOKEN",
		Short: "Print the user ID of a valid access token",
		Long: `Check an access token's signature and expiry. TOKEN may be a bare
token or an Authorization header value such as "Bearer <token>".
No database is needed.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			tok := strings.TrimSpace(args[0])
			if strings.ContainsAny(tok, " \t") {
				var err error
				if tok, err = auth.ParseBearer(tok); err != nil {
					return err
				}
			}

			codec, err := a.codec()
			if err != nil {
				return err
			}
			claims, err := codec.VerifyAccess(tok)
			if err != nil {
				a.metrics.RecordVerification(observability.TokenAccess, observability.ResultInvalid)
				return oops.Code(auth.CodeTokenInvalid).Wrap(auth.ErrTokenInvalid)
			}
			a.metrics.RecordVerification(observability.TokenAccess, observability.ResultSuccess)
			fmt.Fprintln(cmd.OutOrStdout(), claims.UserID)
			return nil
		}),
	}
}

func newVerifyRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-refresh TOKEN",
		Short: "Report whether a refresh token is the user's live token",
		Long: `Print "valid" when TOKEN is correctly signed, unexpired, and the
refresh token currently stored for its user. Otherwise print "invalid"
and exit non-zero. The token is not rotated.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if !svc.VerifyRefresh(cmd.Context(), strings.TrimSpace(args[0])) {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid")
				return errRefreshInvalid
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		}),
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh TOKEN",
		Short: "Exchange a live refresh token for a new access token",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			access, err := svc.Refresh(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), access)
			return nil
		}),
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke a user's refresh token",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return oops.Code(auth.CodeInvalidInput).Wrapf(auth.ErrInvalidInput, "--user-id must be positive")
			}
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.Logout(cmd.Context(), userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged out user %d\n", userID)
			return nil
		}),
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "ID of the user to log out")
	_ = cmd.MarkFlagRequired("user-id") //nolint:errcheck // flag is defined above
	return cmd
}
