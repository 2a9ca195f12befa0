package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCountersBeforeInitAreNoops(t *testing.T) {
	if observationsTotal != nil {
		t.Skip("metrics already initialised in this process")
	}
	IncObservation("SpO2", "danger")
	ObservePersist("file", ResultSuccess, time.Millisecond)
	IncNotification(NotifySent)
}

func TestCounters(t *testing.T) {
	Init()
	Init()

	before := value(t, observationsTotal.WithLabelValues("SpO2", "danger"))
	IncObservation("SpO2", "danger")
	assert.Equal(t, before+1, value(t, observationsTotal.WithLabelValues("SpO2", "danger")))

	before = value(t, observationsTotal.WithLabelValues("unknown", "normal"))
	IncObservation("", "normal")
	assert.Equal(t, before+1, value(t, observationsTotal.WithLabelValues("unknown", "normal")))

	before = value(t, persistTotal.WithLabelValues("redis", ResultError))
	ObservePersist("redis", ResultError, 5*time.Millisecond)
	assert.Equal(t, before+1, value(t, persistTotal.WithLabelValues("redis", ResultError)))

	before = value(t, alertEventsTotal.WithLabelValues("raised", "spo2_low"))
	IncAlertEvent("raised", "spo2_low")
	assert.Equal(t, before+1, value(t, alertEventsTotal.WithLabelValues("raised", "spo2_low")))

	before = value(t, notifyTotal.WithLabelValues(NotifySuppressed))
	IncNotification(NotifySuppressed)
	assert.Equal(t, before+1, value(t, notifyTotal.WithLabelValues(NotifySuppressed)))

	before = value(t, httpRequests.WithLabelValues("GET", "200"))
	ObserveHTTP("GET", "200", time.Millisecond)
	assert.Equal(t, before+1, value(t, httpRequests.WithLabelValues("GET", "200")))
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0.0, count(nil))
	assert.Equal(t, 0.0, count(func() int { return -3 }))
	assert.Equal(t, 4.0, count(func() int { return 4 }))
}
