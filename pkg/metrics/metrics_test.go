package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCronJobMetricsRecordsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("hold-release")
	m.IncSuccess("hold-release")
	m.IncFailure("scheduled-payouts")
	m.ObserveDuration("hold-release", 150*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.success.WithLabelValues("hold-release")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failure.WithLabelValues("scheduled-payouts")))
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.IncSuccess("noop")
	m.IncFailure("noop")
	m.ObserveDuration("noop", time.Second)

	unregistered := NewCronJobMetrics(nil)
	unregistered.IncSuccess("noop")
}

func TestSettlementMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.RecordSettlement(8820)
	m.RecordSettlement(0)
	m.RecordHoldRelease(3)
	m.RecordPayoutCreated()
	m.RecordPayoutFailed()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ordersSettled))
	assert.Equal(t, float64(8820), testutil.ToFloat64(m.centsSettled))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.holdsReleased))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.payoutsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.payoutsFailed))
}

func TestSettlementMetricsNilSafe(t *testing.T) {
	var m *SettlementMetrics
	m.RecordSettlement(100)
	m.RecordHoldRelease(1)
	m.RecordPayoutCreated()
	m.RecordPayoutFailed()
}
