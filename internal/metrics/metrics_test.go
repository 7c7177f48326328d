package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAndGauge(t *testing.T) {
	m := New()
	m.SessionStarted()
	m.SessionStarted()
	m.Submission(ResultOK)
	m.Submission(ResultTimeout)
	m.Answer(true)
	m.SetOpenSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues(ResultTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.answers.WithLabelValues("true")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.openSessions))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SessionStarted()
	m.SessionCompleted()
	m.SessionAbandoned()
	m.Answer(false)
	m.Submission(ResultError)
	m.SetOpenSessions(1)
}
