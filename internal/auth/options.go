// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/authcore/authcore/internal/observability"
)

var tracer = otel.Tracer("github.com/authcore/authcore/internal/auth")

// Option configures a Service or SessionManager.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics sink. Defaults to none.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
