// Package metrics exposes Prometheus collectors for producer-side session
// accounting. Collectors register on the default registry; the server
// mounts promhttp on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/scribehq/scribe"
)

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_sessions_started_total",
		Help: "Sessions accepted by the generate endpoint",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_sessions_active",
		Help: "Sessions currently streaming",
	})

	sessionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_session_outcomes_total",
		Help: "Finished sessions by outcome",
	}, []string{"outcome"}) // outcome=completed|failed|cancelled

	sessionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_session_failures_total",
		Help: "Failed sessions by error kind",
	}, []string{"kind"})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scribe_session_duration_seconds",
		Help:    "Wall time from accept to terminal frame",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	stagesReached = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_stages_reached_total",
		Help: "Progress frames emitted by stage",
	}, []string{"stage"})

	rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_rejections_total",
		Help: "Requests rejected before a stream opened",
	}, []string{"reason"}) // reason=auth|validation|rate_limit|quota
)

// SessionStarted records an accepted session and marks it active.
func SessionStarted() {
	sessionsStarted.Inc()
	sessionsActive.Inc()
}

// SessionCompleted records a successful session.
func SessionCompleted(d time.Duration) {
	finish("completed", d)
}

// SessionFailed records a failed session and its error kind.
func SessionFailed(kind scribe.ErrorKind, d time.Duration) {
	sessionFailures.WithLabelValues(string(kind)).Inc()
	finish("failed", d)
}

// SessionCancelled records a session abandoned by its consumer.
func SessionCancelled(d time.Duration) {
	finish("cancelled", d)
}

func finish(outcome string, d time.Duration) {
	sessionsActive.Dec()
	sessionOutcomes.WithLabelValues(outcome).Inc()
	sessionDuration.Observe(d.Seconds())
}

// StageReached records one progress frame.
func StageReached(stage scribe.Stage) {
	stagesReached.WithLabelValues(string(stage)).Inc()
}

// Rejected records a request turned away before streaming began.
func Rejected(reason string) {
	rejections.WithLabelValues(reason).Inc()
}
