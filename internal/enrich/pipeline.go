// Package enrich turns input entities into scored records, one per entity.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"provenance-enricher/internal/keywords"
	"provenance-enricher/internal/langdetect"
	"provenance-enricher/internal/metrics"
	"provenance-enricher/internal/models"
	"provenance-enricher/internal/scoring"
	"provenance-enricher/pkg/logger"
)

// BundleBuilder collects a website's evidence.
type BundleBuilder interface {
	Build(ctx context.Context, website string) models.SiteBundle
}

// Sink receives finished records in input order.
type Sink interface {
	Write(ctx context.Context, rec models.Record) error
	Close() error
}

type Pipeline struct {
	builder    BundleBuilder
	engine     *scoring.Engine
	placeTypes keywords.PlaceTypes
	detector   *langdetect.Detector
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// New wires a pipeline. detector and m may be nil.
func New(b BundleBuilder, e *scoring.Engine, pt keywords.PlaceTypes, d *langdetect.Detector, m *metrics.Metrics, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{builder: b, engine: e, placeTypes: pt, detector: d, metrics: m, log: log}
}

// Enrich produces the record of one entity. It never fails: an entity
// without a website, or one whose processing panics, gets the null
// fragment.
func (p *Pipeline) Enrich(ctx context.Context, ent models.Entity) (rec models.Record) {
	rec = p.base(ent)
	website := strings.TrimSpace(ent.Website)
	log := p.log.With("entity", ent.ID)
	if website == "" {
		p.metrics.IncEntity("no_website")
		log.Debugf("no website, skipping crawl")
		return rec
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s: %v", website, r)
			p.metrics.IncEntity("failed")
			rec = p.base(ent)
		}
	}()

	b := p.builder.Build(ctx, website)
	b.Language = p.detector.Detect(b.CombinedText)
	rec = p.fromBundle(rec, b)

	log.Debugf("%s: %d pages, top country %q", website, rec.PagesFetched, rec.TopCountry)
	if rec.TopCountry == "" {
		p.metrics.IncEntity("unmatched")
	} else {
		p.metrics.IncEntity("scored")
		p.metrics.IncTopCountry(rec.TopCountry)
	}
	return rec
}

// base is the null fragment plus the entity's own derived fields.
func (p *Pipeline) base(ent models.Entity) models.Record {
	city, country := SplitAddress(ent.Address)
	return models.Record{
		Entity:          ent,
		City:            city,
		Country:         country,
		Category:        p.placeTypes.Category(ent.Types),
		Scores:          models.Scores{CountryScores: models.CountryScores{}},
		SubpagesCrawled: []models.Subpage{},
	}
}

func (p *Pipeline) fromBundle(rec models.Record, b models.SiteBundle) models.Record {
	if len(b.Emails) > 0 {
		rec.Email = b.Emails[0]
	}
	rec.Emails = b.Emails
	rec.Socials = b.Socials
	rec.Scores = p.engine.Score(b.CombinedText)
	rec.SubpagesCrawled = b.Subpages
	rec.PagesFetched = b.Pages
	rec.Language = b.Language
	rec.TextContent = strings.TrimSpace(b.CombinedText)
	return rec
}

// Run processes entities one at a time and hands each record to sink.
// Only sink failures stop the run.
func (p *Pipeline) Run(ctx context.Context, entities []models.Entity, sink Sink) error {
	for i, ent := range entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.log.Infof("[%d/%d] %s", i+1, len(entities), displayWebsite(ent.Website))
		rec := p.Enrich(ctx, ent)
		if err := sink.Write(ctx, rec); err != nil {
			return fmt.Errorf("write record %s: %w", ent.ID, err)
		}
	}
	return nil
}

func displayWebsite(w string) string {
	if w = strings.TrimSpace(w); w == "" {
		return "(no website)"
	}
	return w
}

// SplitAddress takes the last two comma-separated parts of an address as
// city and country. A leading token holding digits, usually a postal code,
// is dropped from the city. A single part is returned as the city.
func SplitAddress(address string) (city, country string) {
	var parts []string
	for _, p := range strings.Split(address, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	city = parts[len(parts)-2]
	country = parts[len(parts)-1]
	tokens := strings.Fields(city)
	if len(tokens) > 1 && strings.IndexFunc(tokens[0], unicode.IsDigit) >= 0 {
		city = strings.Join(tokens[1:], " ")
	}
	return city, country
}
