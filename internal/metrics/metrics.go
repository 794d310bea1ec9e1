package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the enricher. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	PagesFetched       *prometheus.CounterVec
	FetchDuration      prometheus.Histogram
	Entities           *prometheus.CounterVec
	TopCountry         *prometheus.CounterVec
	SubpagesDiscovered prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PagesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "enricher_pages_fetched_total",
			Help: "Pages fetched, by outcome.",
		}, []string{"outcome"}), // ok, http_error, transport_error, parse_error
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "enricher_fetch_duration_seconds",
			Help:    "Duration of single page fetches.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Entities: f.NewCounterVec(prometheus.CounterOpts{
			Name: "enricher_entities_total",
			Help: "Entities processed, by result.",
		}, []string{"result"}), // scored, unmatched, no_website, failed
		TopCountry: f.NewCounterVec(prometheus.CounterOpts{
			Name: "enricher_top_country_total",
			Help: "Entities per inferred top country.",
		}, []string{"country"}),
		SubpagesDiscovered: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "enricher_subpages_discovered",
			Help:    "Subpages selected per site.",
			Buckets: []float64{0, 1, 2, 4, 6, 8, 10, 12},
		}),
	}
}

func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) IncEntity(result string) {
	if m == nil {
		return
	}
	m.Entities.WithLabelValues(result).Inc()
}

func (m *Metrics) IncTopCountry(country string) {
	if m == nil || country == "" {
		return
	}
	m.TopCountry.WithLabelValues(country).Inc()
}

func (m *Metrics) ObserveSubpages(n int) {
	if m == nil {
		return
	}
	m.SubpagesDiscovered.Observe(float64(n))
}
