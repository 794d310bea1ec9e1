package enrich

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"provenance-enricher/internal/bundle"
	"provenance-enricher/internal/crawler"
	"provenance-enricher/internal/discovery"
	"provenance-enricher/internal/ioformats"
	"provenance-enricher/internal/keywords"
	"provenance-enricher/internal/metrics"
	"provenance-enricher/internal/models"
	"provenance-enricher/internal/parser"
	"provenance-enricher/internal/scoring"
	"provenance-enricher/pkg/logger"
)

type stubBuilder struct {
	bundles map[string]models.SiteBundle
	calls   int
	panics  bool
}

func (s *stubBuilder) Build(ctx context.Context, website string) models.SiteBundle {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.bundles[website]
}

type memSink struct {
	recs []models.Record
	err  error
}

func (m *memSink) Write(ctx context.Context, rec models.Record) error {
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memSink) Close() error { return nil }

func newPipeline(t *testing.T, b BundleBuilder, m *metrics.Metrics) *Pipeline {
	t.Helper()
	cfg, err := keywords.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return New(b, scoring.NewEngine(cfg), cfg.PlaceTypes, nil, m, nil)
}

func TestEnrichNullWebsite(t *testing.T) {
	sb := &stubBuilder{}
	m := metrics.New(prometheus.NewRegistry())
	p := newPipeline(t, sb, m)

	rec := p.Enrich(context.Background(), models.Entity{
		ID:      "p1",
		Address: "Calle Mayor 1, 28013 Madrid, Spain",
		Types:   []string{"bakery", "point_of_interest"},
	})
	if sb.calls != 0 {
		t.Fatalf("no network work expected for missing website")
	}
	if rec.Email != "" || rec.Socials != (models.Socials{}) {
		t.Fatalf("contact fields must be empty: %+v", rec)
	}
	if rec.ProductCount != 0 || len(rec.CountryScores) != 0 || rec.CountryScores == nil {
		t.Fatalf("expected zero scores, got %+v", rec.Scores)
	}
	if rec.City != "Madrid" || rec.Country != "Spain" || rec.Category != "Otros, Pastelería" {
		t.Fatalf("derived entity fields missing: %q %q %q", rec.City, rec.Country, rec.Category)
	}
	if got := testutil.ToFloat64(m.Entities.WithLabelValues("no_website")); got != 1 {
		t.Fatalf("no_website counter = %v", got)
	}
}

func TestEnrichFromBundle(t *testing.T) {
	sb := &stubBuilder{bundles: map[string]models.SiteBundle{
		"https://almacen.test": {
			Website:      "https://almacen.test",
			CombinedText: "Vendemos alfajores y empanadas caseras.",
			Emails:       []string{"a@almacen.test", "b@almacen.test"},
			Socials:      models.Socials{Instagram: "https://instagram.com/almacen"},
			Subpages:     []models.Subpage{{URL: "https://almacen.test/contacto", Bucket: "contact"}},
			Pages:        2,
		},
	}}
	m := metrics.New(prometheus.NewRegistry())
	rec := newPipeline(t, sb, m).Enrich(context.Background(), models.Entity{ID: "p2", Website: "https://almacen.test"})

	if rec.Email != "a@almacen.test" || rec.Instagram != "https://instagram.com/almacen" {
		t.Fatalf("contact fields wrong: %+v", rec)
	}
	if rec.TopCountry != "uruguay" || !reflect.DeepEqual(rec.OriginCountries, []string{"argentina", "uruguay", "colombia"}) {
		t.Fatalf("scores wrong: %+v", rec.Scores)
	}
	if rec.PagesFetched != 2 || len(rec.SubpagesCrawled) != 1 || rec.TextContent == "" {
		t.Fatalf("trace fields wrong: %+v", rec)
	}
	if got := testutil.ToFloat64(m.TopCountry.WithLabelValues("uruguay")); got != 1 {
		t.Fatalf("top country counter = %v", got)
	}
}

func TestEnrichRecoversPanic(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	rec := newPipeline(t, &stubBuilder{panics: true}, m).Enrich(context.Background(), models.Entity{ID: "p3", Website: "https://x.test"})
	if rec.ID != "p3" || rec.TopCountry != "" || rec.CountryScores == nil {
		t.Fatalf("expected null fragment, got %+v", rec)
	}
	if got := testutil.ToFloat64(m.Entities.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed counter = %v", got)
	}
}

func TestRun(t *testing.T) {
	sb := &stubBuilder{bundles: map[string]models.SiteBundle{}}
	p := newPipeline(t, sb, nil)
	entities := []models.Entity{{ID: "a", Website: "https://a.test"}, {ID: "b"}, {ID: "c", Website: "https://c.test"}}

	sink := &memSink{}
	if err := p.Run(context.Background(), entities, sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.recs) != 3 || sink.recs[0].ID != "a" || sink.recs[2].ID != "c" {
		t.Fatalf("expected one record per entity in order, got %+v", sink.recs)
	}

	failing := &memSink{err: errors.New("disk full")}
	if err := p.Run(context.Background(), entities, failing); err == nil {
		t.Fatal("expected sink error to abort the run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx, entities, &memSink{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEnrichEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body>
<h1>Almacén Rioplatense</h1>
<p>Alfajores, yerba mate y dulce de leche.</p>
<a href="https://instagram.com/first">IG</a>
<a href="https://instagram.com/second">IG</a>
<a href="/productos">Productos</a>
<a href="/catalogo.pdf">Catálogo</a>
</body></html>`))
	})
	mux.HandleFunc("/productos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><p>Empanadas congeladas. Pedidos: ventas@almacen.test</p></body></html>`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	cfg, err := keywords.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	fetcher := crawler.NewPageFetcher(crawler.NewHTTPClient(2*time.Second, time.Second, 1<<20), parser.New(), nil, nil)
	builder := bundle.NewBuilder(fetcher, discovery.NewRanker(cfg.Subpages), bundle.Options{Concurrency: 2}, nil, nil)
	p := New(builder, scoring.NewEngine(cfg), cfg.PlaceTypes, nil, nil, nil)

	rec := p.Enrich(context.Background(), models.Entity{ID: "e2e", Website: ts.URL + "/"})
	if rec.Instagram != "https://instagram.com/first" {
		t.Fatalf("first instagram anchor should win, got %q", rec.Instagram)
	}
	if rec.Email != "ventas@almacen.test" {
		t.Fatalf("email from subpage expected, got %q", rec.Email)
	}
	if len(rec.SubpagesCrawled) != 1 || rec.SubpagesCrawled[0].Bucket != "products_shop" {
		t.Fatalf("unexpected trace %+v", rec.SubpagesCrawled)
	}
	if rec.CountryScores.Get("argentina") == 0 || rec.TopCountry == "" {
		t.Fatalf("expected argentina evidence, got %+v", rec.Scores)
	}
	if rec.PagesFetched != 2 {
		t.Fatalf("expected 2 pages, got %d", rec.PagesFetched)
	}
}

func TestSplitAddress(t *testing.T) {
	cases := []struct {
		in, city, country string
	}{
		{"Calle Mayor 1, 28013 Madrid, Spain", "Madrid", "Spain"},
		{"Av. Corrientes 1234, Buenos Aires, Argentina", "Buenos Aires", "Argentina"},
		{"Lisboa", "Lisboa", ""},
		{"", "", ""},
		{" , ,", "", ""},
		{"Rua A, 1000-001, Portugal", "1000-001", "Portugal"},
	}
	for _, tc := range cases {
		city, country := SplitAddress(tc.in)
		if city != tc.city || country != tc.country {
			t.Fatalf("SplitAddress(%q) = %q, %q; want %q, %q", tc.in, city, country, tc.city, tc.country)
		}
	}
}

func TestNullWebsiteRecordJSON(t *testing.T) {
	p := newPipeline(t, &stubBuilder{}, nil)
	rec := p.Enrich(context.Background(), models.Entity{ID: "p1", Attributes: map[string]string{"rating": "4.2"}})

	var buf bytes.Buffer
	sink := ioformats.NewNDJSONSink(&buf)
	if err := sink.Write(context.Background(), rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	line := buf.String()
	for _, want := range []string{
		`"email":null`, `"instagram":null`, `"twitter":null`, `"facebook":null`, `"youtube":null`,
		`"whatsapp":null`, `"top_country":null`, `"country_scores":{}`, `"subpages_crawled":[]`,
		`"pages_fetched":0`, `"rating":"4.2"`,
	} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("missing %s in %s", want, line)
		}
	}
}

func TestEnrichLogsCarryEntityID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg, err := keywords.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	p := New(&stubBuilder{panics: true}, scoring.NewEngine(cfg), cfg.PlaceTypes, nil, nil, logger.FromZap(zap.New(core)))

	p.Enrich(context.Background(), models.Entity{ID: "p9", Website: "https://x.test"})
	p.Enrich(context.Background(), models.Entity{ID: "p10"})

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	if len(errs) != 1 || errs[0].ContextMap()["entity"] != "p9" {
		t.Fatalf("panic log should carry the entity id, got %+v", errs)
	}
	skipped := logs.FilterMessage("no website, skipping crawl").All()
	if len(skipped) != 1 || skipped[0].ContextMap()["entity"] != "p10" {
		t.Fatalf("skip log should carry the entity id, got %+v", skipped)
	}
}
