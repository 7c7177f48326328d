// Package metrics exposes Prometheus instruments for quiz sessions and score
// submissions. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "popquiz"

// Submission results.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

type Metrics struct {
	Registry *prometheus.Registry

	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsAbandoned prometheus.Counter
	answers           *prometheus.CounterVec
	submissions       *prometheus.CounterVec
	openSessions      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Quiz sessions that entered play.",
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Quiz sessions answered to the last question.",
		}),
		sessionsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_abandoned_total",
			Help:      "Quiz sessions left before completion.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Scored answers by correctness.",
		}, []string{"correct"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_submissions_total",
			Help:      "Final score submissions by result.",
		}, []string{"result"}),
		openSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_sessions",
			Help:      "Session engines currently registered.",
		}),
	}
	m.Registry.MustRegister(
		m.sessionsStarted,
		m.sessionsCompleted,
		m.sessionsAbandoned,
		m.answers,
		m.submissions,
		m.openSessions,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *Metrics) SessionCompleted() {
	if m == nil {
		return
	}
	m.sessionsCompleted.Inc()
}

func (m *Metrics) SessionAbandoned() {
	if m == nil {
		return
	}
	m.sessionsAbandoned.Inc()
}

func (m *Metrics) Answer(correct bool) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.answers.WithLabelValues(label).Inc()
}

func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) SetOpenSessions(n int) {
	if m == nil {
		return
	}
	m.openSessions.Set(float64(n))
}
