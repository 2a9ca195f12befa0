package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var gaugeOnce sync.Once

// RegisterSnapshotGauges exposes store size and active alert count. The
// callbacks run on every scrape.
func RegisterSnapshotGauges(observations, activeAlerts func() int) {
	gaugeOnce.Do(func() {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "observations_stored",
				Help: "Observations currently held by the store",
			},
			func() float64 {
				return count(observations)
			},
		))

		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "alerts_active",
				Help: "Danger-zone alerts derived from the latest readings",
			},
			func() float64 {
				return count(activeAlerts)
			},
		))
	})
}

func count(fn func() int) float64 {
	if fn == nil {
		return 0
	}
	n := fn()
	if n < 0 {
		return 0
	}
	return float64(n)
}
