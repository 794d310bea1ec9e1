// Package bundle assembles the evidence of one website: its main page plus
// the ranked subpages, merged into a single SiteBundle.
package bundle

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"provenance-enricher/internal/discovery"
	"provenance-enricher/internal/metrics"
	"provenance-enricher/internal/models"
	"provenance-enricher/pkg/logger"
)

// Fetcher retrieves one page. Implementations must not fail; problems are
// reported through an empty PageResult.
type Fetcher interface {
	Fetch(ctx context.Context, url string) models.PageResult
}

type Options struct {
	// Concurrency bounds parallel subpage fetches; values below 1 mean
	// sequential.
	Concurrency int
	// Delay is waited before every outbound request after the first.
	Delay time.Duration
}

type Builder struct {
	fetcher Fetcher
	ranker  *discovery.Ranker
	opts    Options
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewBuilder(f Fetcher, r *discovery.Ranker, opts Options, m *metrics.Metrics, log *logger.Logger) *Builder {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{fetcher: f, ranker: r, opts: opts, metrics: m, log: log}
}

// CleanWebsite trims the URL, drops trailing slashes and defaults the
// scheme to https.
func CleanWebsite(website string) string {
	w := strings.TrimRight(strings.TrimSpace(website), "/")
	if w == "" {
		return ""
	}
	if !strings.Contains(w, "://") {
		w = "https://" + w
	}
	return w
}

// Build fetches the main page and its ranked subpages and merges them.
// Page order (main first, then subpages in rank order) decides text order
// and which page's social links win, whatever order fetches complete in.
func (b *Builder) Build(ctx context.Context, website string) models.SiteBundle {
	site := CleanWebsite(website)
	bundle := models.SiteBundle{Website: site, Subpages: []models.Subpage{}}
	if site == "" {
		return bundle
	}

	main := b.fetcher.Fetch(ctx, site)
	anchors := main.Anchors
	if !main.OK() && ctx.Err() == nil {
		// Discovery gets its own retrieval of the base URL; its text is
		// not part of the bundle.
		if b.wait(ctx) {
			anchors = b.fetcher.Fetch(ctx, site).Anchors
		}
	}

	subpages := b.ranker.Rank(site, anchors)
	b.metrics.ObserveSubpages(len(subpages))
	results := b.fetchAll(ctx, subpages)

	pages := append([]models.PageResult{main}, results...)
	b.merge(&bundle, pages)
	bundle.Subpages = append(bundle.Subpages, subpages...)
	b.log.Debugf("bundle %s: %d/%d pages, %d subpages, %d chars", site, bundle.Pages, len(pages), len(subpages), len(bundle.CombinedText))
	return bundle
}

func (b *Builder) fetchAll(ctx context.Context, subpages []models.Subpage) []models.PageResult {
	results := make([]models.PageResult, len(subpages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, sp := range subpages {
		i, sp := i, sp
		g.Go(func() error {
			if !b.wait(gctx) {
				results[i] = models.PageResult{URL: sp.URL, Error: gctx.Err().Error()}
				return nil
			}
			results[i] = b.fetcher.Fetch(gctx, sp.URL)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// wait applies the politeness delay. It reports false when ctx ended first.
func (b *Builder) wait(ctx context.Context) bool {
	if b.opts.Delay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(b.opts.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (b *Builder) merge(bundle *models.SiteBundle, pages []models.PageResult) {
	var texts []string
	emails := make(map[string]struct{})
	for _, p := range pages {
		if p.OK() {
			bundle.Pages++
		}
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
		for _, e := range p.Emails {
			emails[e] = struct{}{}
		}
		bundle.Socials.Merge(p.Socials)
	}
	bundle.CombinedText = strings.Join(texts, " ")
	bundle.Emails = make([]string, 0, len(emails))
	for e := range emails {
		bundle.Emails = append(bundle.Emails, e)
	}
	sort.Strings(bundle.Emails)
}
