package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	occurrences   *prometheus.CounterVec
	eventsCreated *prometheus.CounterVec
	expansionSize prometheus.Histogram
	trashPurged   prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		occurrences: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubplanner_occurrences_generated_total",
			Help: "Occurrences produced by recurrence expansion.",
		}, []string{"frequency"}),
		eventsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubplanner_events_created_total",
			Help: "Events persisted, by how they were created.",
		}, []string{"kind"}),
		expansionSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubplanner_expansion_size",
			Help:    "Number of occurrences per expansion.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 730},
		}),
		trashPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "clubplanner_trash_purged_total",
			Help: "Trashed events removed by the purge job.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveExpansion(frequency string, n int) {
	if m == nil {
		return
	}
	m.occurrences.WithLabelValues(frequency).Add(float64(n))
	m.expansionSize.Observe(float64(n))
}

func (m *Metrics) EventsCreated(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsCreated.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) TrashPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.trashPurged.Add(float64(n))
}
