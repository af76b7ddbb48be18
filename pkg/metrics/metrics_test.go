package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewWithRegistry("counseling", prometheus.NewRegistry())

	m.MappingTransition("PENDING_PAYMENT", "PAYMENT_CONFIRMED")
	m.MappingTransition("PENDING_PAYMENT", "PAYMENT_CONFIRMED")
	m.ScheduleConflict()
	m.LedgerPosting("RECEIVABLE", "enqueued")
	m.ObserveDBQuery("SELECT", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MappingTransitions.WithLabelValues("counseling", "PENDING_PAYMENT", "PAYMENT_CONFIRMED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScheduleConflicts.WithLabelValues("counseling")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerPostings.WithLabelValues("counseling", "RECEIVABLE", "enqueued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueriesTotal.WithLabelValues("counseling", "SELECT", "error")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/", 200, time.Second)
		m.ObserveDBQuery("SELECT", nil, time.Second)
		m.SetDBPoolStats(1, 1, 0, 0)
		m.MappingTransition("a", "b")
		m.ExtensionTransition("a", "b")
		m.ScheduleConflict()
		m.ScheduleCreated(50)
		m.LedgerPosting("REFUND", "failed")
	})
}
