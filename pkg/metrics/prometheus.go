package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Register exposes every timing metric on reg as a counter of observations
// plus average and maximum latency gauges (milliseconds).
func Register(reg prometheus.Registerer) error {
	for _, m := range AllTimingMetrics() {
		m := m
		collectors := []prometheus.Collector{
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: "lazytree",
				Name:      m.Name() + "_total",
				Help:      "Number of recorded " + m.Name() + " operations.",
			}, func() float64 { return float64(m.Count()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "lazytree",
				Name:      m.Name() + "_avg_ms",
				Help:      "Average " + m.Name() + " latency in milliseconds.",
			}, func() float64 { return m.Stats().AvgMs }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "lazytree",
				Name:      m.Name() + "_max_ms",
				Help:      "Maximum " + m.Name() + " latency in milliseconds.",
			}, func() float64 { return m.Stats().MaxMs }),
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				return err
			}
		}
	}
	return nil
}
