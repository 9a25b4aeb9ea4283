// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/pkg/errutil"
)

// Process exit codes.
const (
	exitOK                 = 0
	exitInternal           = 1
	exitUsage              = 2
	exitConflict           = 3
	exitInvalidCredentials = 4
	exitTokenInvalid       = 5
)

// internalMessage replaces the text of internal errors on stderr. The full
// error is in the log.
const internalMessage = "internal error; see the log for details"

// usageCodes are oops codes caused by the invocation rather than by a failure.
var usageCodes = map[string]bool{
	"CONFIG_INVALID":        true,
	"CONFIG_LOAD_FAILED":    true,
	"CONFIRMATION_REQUIRED": true,
	"INVALID_VERSION":       true,
	"LOG_FORMAT_INVALID":    true,
	"LOG_LEVEL_INVALID":     true,
}

// exitCode maps an error returned by the root command to a process exit code.
// Errors not built with oops come from cobra's flag and argument checks.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, errRefreshInvalid) {
		return exitTokenInvalid
	}

	switch auth.KindOf(err) {
	case auth.KindConflict:
		return exitConflict
	case auth.KindInvalidCredentials:
		return exitInvalidCredentials
	case auth.KindTokenInvalid:
		return exitTokenInvalid
	case auth.KindInvalidInput:
		return exitUsage
	}

	if _, ok := oops.AsOops(err); !ok {
		return exitUsage
	}
	if usageCodes[errutil.Code(err)] {
		return exitUsage
	}
	return exitInternal
}

// errorMessage is the line printed to stderr for err.
func errorMessage(err error) string {
	if exitCode(err) == exitInternal {
		return internalMessage
	}
	return err.Error()
}

// execute runs cmd, reports any error on stderr and returns the exit code.
func execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, "Error:", errorMessage(err))
	return exitCode(err)
}
