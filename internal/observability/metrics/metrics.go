package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the search and
// booking flows.
type SchedulingMetrics struct {
	searchSeconds  *prometheus.HistogramVec
	bookingsTotal  *prometheus.CounterVec
	remindersTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		searchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medibridge",
			Subsystem: "scheduling",
			Name:      "search_seconds",
			Help:      "Latency of availability searches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"urgency"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibridge",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibridge",
			Subsystem: "scheduling",
			Name:      "reminders_total",
			Help:      "Reminder dispatch results",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.searchSeconds, m.bookingsTotal, m.remindersTotal)
	return m
}

func (m *SchedulingMetrics) ObserveSearch(urgency string, seconds float64) {
	if m == nil {
		return
	}
	m.searchSeconds.WithLabelValues(urgency).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveReminder(status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(status).Inc()
}
