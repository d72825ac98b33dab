package observability

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"swaprouter/core/events"
)

type routerMetrics struct {
	swaps    *prometheus.CounterVec
	failures *prometheus.CounterVec
	fees     *prometheus.CounterVec
	admin    *prometheus.CounterVec
}

var (
	routerMetricsOnce sync.Once
	routerRegistry    *routerMetrics
)

// Router returns the lazily-initialised metrics registry tracking swap
// activity and administrative mutations.
func Router() *routerMetrics {
	routerMetricsOnce.Do(func() {
		routerRegistry = &routerMetrics{
			swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "swaprouter",
				Subsystem: "swaps",
				Name:      "settled_total",
				Help:      "Count of settled swaps segmented by venue.",
			}, []string{"venue"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "swaprouter",
				Subsystem: "swaps",
				Name:      "failed_total",
				Help:      "Count of failed swap attempts segmented by venue.",
			}, []string{"venue"}),
			fees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "swaprouter",
				Subsystem: "swaps",
				Name:      "fees_collected_total",
				Help:      "Base units of output assets routed to the fees collector, segmented by venue.",
			}, []string{"venue"}),
			admin: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "swaprouter",
				Subsystem: "admin",
				Name:      "mutations_total",
				Help:      "Count of administrative mutations segmented by event type.",
			}, []string{"event"}),
		}
		prometheus.MustRegister(routerRegistry.swaps, routerRegistry.failures, routerRegistry.fees, routerRegistry.admin)
	})
	return routerRegistry
}

// RecordFailure increments the failure counter for the supplied venue label.
func (m *routerMetrics) RecordFailure(venue string) {
	if m == nil {
		return
	}
	venue = strings.TrimSpace(venue)
	if venue == "" {
		venue = "unknown"
	}
	m.failures.WithLabelValues(venue).Inc()
}

// Emit implements events.Emitter: settled swaps count by venue, every other
// router event counts as an administrative mutation.
func (m *routerMetrics) Emit(ev events.Event) {
	if m == nil || ev == nil {
		return
	}
	if ev.EventType() == events.TypeSwapSuccessful {
		attrs := ev.Attributes()
		venue := attrs["venue"]
		if venue == "" {
			venue = "unknown"
		}
		m.swaps.WithLabelValues(venue).Inc()
		if fee, err := strconv.ParseFloat(attrs["fee"], 64); err == nil && fee > 0 {
			m.fees.WithLabelValues(venue).Add(fee)
		}
		return
	}
	m.admin.WithLabelValues(ev.EventType()).Inc()
}
