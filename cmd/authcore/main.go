// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package main is the authcore command-line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if code := execute(ctx, cmd, os.Stderr); code != exitOK {
		stop()
		os.Exit(code)
	}
}
