package enrich

import (
	"provenance-enricher/internal/bundle"
	"provenance-enricher/internal/config"
	"provenance-enricher/internal/crawler"
	"provenance-enricher/internal/discovery"
	"provenance-enricher/internal/keywords"
	"provenance-enricher/internal/langdetect"
	"provenance-enricher/internal/metrics"
	"provenance-enricher/internal/parser"
	"provenance-enricher/internal/scoring"
	"provenance-enricher/pkg/logger"
)

// Components is everything a run needs, built from one configuration.
type Components struct {
	Catalog  *keywords.Config
	Client   *crawler.HTTPClient
	Fetcher  *crawler.PageFetcher
	Ranker   *discovery.Ranker
	Engine   *scoring.Engine
	Pipeline *Pipeline
}

// Wire loads the catalog named by cfg and assembles the pipeline. A
// positive cfg.MaxSubpages overrides the catalog's frontier cap.
func Wire(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (*Components, error) {
	cat, err := keywords.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	tax := cat.Subpages
	if cfg.MaxSubpages > 0 {
		tax.Max = cfg.MaxSubpages
	}

	client := crawler.NewHTTPClient(cfg.HTTPTimeout, cfg.DialTimeout, cfg.MaxBodyBytes).WithUserAgent(cfg.UserAgent)
	fetcher := crawler.NewPageFetcher(client, parser.New(), m, log)
	ranker := discovery.NewRanker(tax)
	builder := bundle.NewBuilder(fetcher, ranker, bundle.Options{
		Concurrency: cfg.SubpageConcurrency,
		Delay:       cfg.RequestDelay,
	}, m, log)
	engine := scoring.NewEngine(cat)

	var det *langdetect.Detector
	if cfg.DetectLanguage {
		det = langdetect.New()
	}

	return &Components{
		Catalog:  cat,
		Client:   client,
		Fetcher:  fetcher,
		Ranker:   ranker,
		Engine:   engine,
		Pipeline: New(builder, engine, cat.PlaceTypes, det, m, log),
	}, nil
}
