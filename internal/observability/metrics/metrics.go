package metrics

import "github.com/prometheus/client_golang/prometheus"

// AvailabilityMetrics exposes counters/histograms for availability requests.
type AvailabilityMetrics struct {
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	slotsTotal      *prometheus.CounterVec
	eventsReturned  prometheus.Histogram
}

// NewAvailabilityMetrics registers the collectors on reg, or the default
// registerer when reg is nil.
func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tours",
			Subsystem: "availability",
			Name:      "upstream_requests_total",
			Help:      "Total Bokun availability fetches per product",
		}, []string{"product", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tours",
			Subsystem: "availability",
			Name:      "upstream_latency_seconds",
			Help:      "Latency of Bokun availability fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"product"}),
		slotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tours",
			Subsystem: "availability",
			Name:      "slots_total",
			Help:      "Upstream slots by the rule that resolved their start time",
		}, []string{"rule"}),
		eventsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tours",
			Subsystem: "availability",
			Name:      "events_returned",
			Help:      "Calendar events returned per request",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.upstreamTotal, m.upstreamLatency, m.slotsTotal, m.eventsReturned)
	return m
}

// ObserveUpstream records one upstream fetch; status is "ok" or "error".
func (m *AvailabilityMetrics) ObserveUpstream(product, status string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(product, status).Inc()
	m.upstreamLatency.WithLabelValues(product).Observe(seconds)
}

// ObserveSlot counts one slot under the rule that resolved it.
func (m *AvailabilityMetrics) ObserveSlot(rule string) {
	if m == nil {
		return
	}
	m.slotsTotal.WithLabelValues(rule).Inc()
}

// ObserveEvents records how many events one request returned.
func (m *AvailabilityMetrics) ObserveEvents(count int) {
	if m == nil {
		return
	}
	m.eventsReturned.Observe(float64(count))
}
