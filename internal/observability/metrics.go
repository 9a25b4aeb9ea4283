// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package observability provides Prometheus metrics for the auth core.
package observability

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
	"github.com/samber/oops"
)

// Result label values.
const (
	ResultSuccess            = "success"
	ResultConflict           = "conflict"
	ResultInvalidInput       = "invalid_input"
	ResultInvalidCredentials = "invalid_credentials"
	ResultInvalid            = "invalid"
	ResultError              = "error"
)

// Token kind label values.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Metrics contains the auth core's Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registrations      *prometheus.CounterVec
	Logins             *prometheus.CounterVec
	TokenVerifications *prometheus.CounterVec
	SessionsIssued     prometheus.Counter
	SessionsRevoked    prometheus.Counter
}

// NewMetrics creates and registers the auth metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_registrations_total",
				Help: "Total number of registration attempts by result",
			},
			[]string{"result"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		TokenVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_token_verifications_total",
				Help: "Total number of token verifications by token kind and result",
			},
			[]string{"kind", "result"},
		),
		SessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_sessions_issued_total",
			Help: "Total number of refresh sessions issued",
		}),
		SessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_sessions_revoked_total",
			Help: "Total number of refresh sessions revoked by logout",
		}),
	}

	reg.MustRegister(m.Registrations, m.Logins, m.TokenVerifications, m.SessionsIssued, m.SessionsRevoked)
	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors
// and the auth metrics registered on it.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry, NewMetrics(registry)
}

// RecordRegistration counts a registration attempt.
func (m *Metrics) RecordRegistration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

// RecordLogin counts a login attempt.
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// RecordVerification counts a token verification.
func (m *Metrics) RecordVerification(kind, result string) {
	if m == nil {
		return
	}
	m.TokenVerifications.WithLabelValues(kind, result).Inc()
}

// RecordSessionIssued counts a refresh session written to the store.
func (m *Metrics) RecordSessionIssued() {
	if m == nil {
		return
	}
	m.SessionsIssued.Inc()
}

// RecordSessionRevoked counts a refresh session removed by logout.
func (m *Metrics) RecordSessionRevoked() {
	if m == nil {
		return
	}
	m.SessionsRevoked.Inc()
}

// WriteText writes every metric family in g to w in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return oops.With("operation", "gather metrics").Wrap(err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return oops.With("operation", "encode metrics").With("family", mf.GetName()).Wrap(err)
		}
	}
	return nil
}
