// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics is
// valid and records nothing, so components built in tests need not
// register collectors.
//
// Label values are fixed small sets (the Outcome and invite result
// constants); room and user IDs never become labels.
type Metrics struct {
	messages     *prometheus.CounterVec
	completion   prometheus.Histogram
	joinAttempts *prometheus.CounterVec
	invites      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with registerer.
// Panics if any is already registered.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_messages_total",
				Help: "Room messages seen by the dispatcher, by outcome.",
			},
			[]string{"outcome"},
		),
		completion: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_completion_seconds",
				Help:    "Duration of completion provider calls in seconds.",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64, 128},
			},
		),
		joinAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_invite_join_attempts_total",
				Help: "Room join attempts made for invites, by result.",
			},
			[]string{"result"},
		),
		invites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_invites_total",
				Help: "Invites addressed to the relay, by final outcome.",
			},
			[]string{"outcome"},
		),
	}
	registerer.MustRegister(metrics.messages, metrics.completion, metrics.joinAttempts, metrics.invites)
	return metrics
}

func (m *Metrics) message(outcome Outcome) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) completionDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.completion.Observe(duration.Seconds())
}

func (m *Metrics) joinAttempt(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.joinAttempts.WithLabelValues(result).Inc()
}

// Invite outcomes.
const (
	inviteJoined    = "joined"
	inviteGaveUp    = "gave_up"
	inviteWithdrawn = "withdrawn"
	inviteIgnored   = "ignored"
	inviteDuplicate = "duplicate"
)

func (m *Metrics) invite(outcome string) {
	if m == nil {
		return
	}
	m.invites.WithLabelValues(outcome).Inc()
}
