package crawler

import (
	"context"
	"errors"
	"time"

	"provenance-enricher/internal/metrics"
	"provenance-enricher/internal/models"
	"provenance-enricher/internal/parser"
	"provenance-enricher/pkg/logger"
)

// PageFetcher turns a URL into a PageResult. It never fails: transport,
// status and parse errors all produce an empty result.
type PageFetcher struct {
	client  *HTTPClient
	parser  *parser.Parser
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewPageFetcher(client *HTTPClient, p *parser.Parser, m *metrics.Metrics, log *logger.Logger) *PageFetcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &PageFetcher{client: client, parser: p, metrics: m, log: log}
}

func (f *PageFetcher) Fetch(ctx context.Context, url string) models.PageResult {
	start := time.Now()
	res := models.PageResult{URL: url}

	resp, err := f.client.Fetch(ctx, url)
	if err != nil {
		outcome := "transport_error"
		var se *StatusError
		if errors.As(err, &se) {
			res.Status = se.Code
			outcome = "http_error"
		}
		res.Error = err.Error()
		res.FetchMs = time.Since(start).Milliseconds()
		f.metrics.ObserveFetch(outcome, time.Since(start))
		f.log.Warnf("fetch %s: %v", url, err)
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.Status
	res.FinalURL = resp.FinalURL
	page, err := f.parser.Extract(resp.Body, resp.ContentType)
	res.FetchMs = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		f.metrics.ObserveFetch("parse_error", time.Since(start))
		f.log.Warnf("parse %s: %v", url, err)
		return res
	}

	res.Title = page.Title
	res.Lang = page.Lang
	res.Text = page.Text
	res.Emails = page.Emails
	res.Socials = page.Socials
	res.Anchors = page.Anchors
	f.metrics.ObserveFetch("ok", time.Since(start))
	f.log.Debugf("fetched %s status=%d bytes_text=%d anchors=%d in %dms", url, res.Status, len(res.Text), len(res.Anchors), res.FetchMs)
	return res
}
