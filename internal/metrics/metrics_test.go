package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveFetch("ok", 20*time.Millisecond)
	m.ObserveFetch("ok", 30*time.Millisecond)
	m.ObserveFetch("http_error", time.Millisecond)
	m.IncEntity("scored")
	m.IncTopCountry("argentina")
	m.IncTopCountry("")
	m.ObserveSubpages(3)

	if got := testutil.ToFloat64(m.PagesFetched.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok fetches = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Entities.WithLabelValues("scored")); got != 1 {
		t.Fatalf("scored entities = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.TopCountry); got != 1 {
		t.Fatalf("expected a single top-country series, got %d", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveFetch("ok", time.Second)
	m.IncEntity("failed")
	m.IncTopCountry("peru")
	m.ObserveSubpages(1)
}
