package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"provenance-enricher/internal/config"
	"provenance-enricher/internal/enrich"
	"provenance-enricher/internal/ioformats"
	"provenance-enricher/internal/keywords"
	"provenance-enricher/internal/metrics"
	"provenance-enricher/internal/models"
	"provenance-enricher/internal/scoring"
	"provenance-enricher/internal/store"
	"provenance-enricher/pkg/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "enricher",
		Usage: "infer the culinary origin of businesses from their websites",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config file (yaml, json, toml or .env)"},
			&cli.StringFlag{Name: "catalog", Usage: "keyword catalog YAML (default: built-in)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Commands: []*cli.Command{
			{
				Name:  "enrich",
				Usage: "crawl and score every entity of an input file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "entities as CSV or NDJSON"},
					&cli.StringFlag{Name: "ndjson", Usage: "write records as NDJSON to this file"},
					&cli.StringFlag{Name: "json", Usage: "write records as a JSON array to this file"},
					&cli.StringFlag{Name: "csv", Usage: "write flat records as CSV to this file"},
					&cli.StringFlag{Name: "sqlite", Usage: "write flat records into this SQLite database"},
					&cli.IntFlag{Name: "concurrency", Usage: "parallel subpage fetches per site"},
					&cli.DurationFlag{Name: "delay", Usage: "politeness delay between requests to a site"},
					&cli.DurationFlag{Name: "timeout", Usage: "per-request HTTP timeout"},
					&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address while running"},
				},
				Action: enrichAction,
			},
			{
				Name:  "score",
				Usage: "score raw text against the keyword catalog",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text", Usage: "text to score"},
					&cli.StringFlag{Name: "file", Usage: "read the text from this file"},
				},
				Action: scoreAction,
			},
			{
				Name:  "discover",
				Usage: "fetch one page and print its ranked subpages",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Required: true},
				},
				Action: discoverAction,
			},
		},
	}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("catalog") {
		cfg.CatalogPath = c.String("catalog")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("concurrency") {
		cfg.SubpageConcurrency = c.Int("concurrency")
	}
	if c.IsSet("delay") {
		cfg.RequestDelay = c.Duration("delay")
	}
	if c.IsSet("timeout") {
		cfg.HTTPTimeout = c.Duration("timeout")
	}
	return cfg, cfg.Validate()
}

func enrichAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer l.Sync()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if addr := c.String("metrics-addr"); addr != "" {
		srv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				l.Errorf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	comp, err := enrich.Wire(cfg, m, l)
	if err != nil {
		return err
	}
	entities, err := ioformats.ReadEntities(c.String("input"))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	sink, err := openSinks(c, comp.Catalog, entities)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runErr := comp.Pipeline.Run(ctx, entities, sink)
	if err := errors.Join(runErr, sink.Close()); err != nil {
		return err
	}
	l.Infof("enriched %d entities in %s", len(entities), time.Since(start).Round(time.Millisecond))
	return nil
}

// stdout hides os.Stdout's Close from the sinks.
type stdout struct{ io.Writer }

func openSinks(c *cli.Context, cat *keywords.Config, entities []models.Entity) (ioformats.MultiSink, error) {
	var sinks ioformats.MultiSink
	fail := func(err error) (ioformats.MultiSink, error) {
		return nil, errors.Join(err, sinks.Close())
	}

	if p := c.String("ndjson"); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fail(fmt.Errorf("create output: %w", err))
		}
		sinks = append(sinks, ioformats.NewNDJSONSink(f))
	}
	if p := c.String("json"); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fail(fmt.Errorf("create output: %w", err))
		}
		sinks = append(sinks, ioformats.NewJSONArraySink(f))
	}
	if p := c.String("csv"); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fail(fmt.Errorf("create output: %w", err))
		}
		flat := ioformats.NewFlattener(ioformats.AttributeKeys(entities), cat.CountryCodes())
		sinks = append(sinks, ioformats.NewCSVSink(f, flat))
	}
	if p := c.String("sqlite"); p != "" {
		s, err := store.Open(p)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, ioformats.NewNDJSONSink(stdout{c.App.Writer}))
	}
	return sinks, nil
}

func scoreAction(c *cli.Context) error {
	text := c.String("text")
	if p := c.String("file"); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		text = string(b)
	} else if !c.IsSet("text") {
		return errors.New("one of --text or --file is required")
	}

	cat, err := keywords.Load(c.String("catalog"))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(scoring.NewEngine(cat).Score(text))
}

func discoverAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer l.Sync()

	comp, err := enrich.Wire(cfg, nil, l)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, cfg.HTTPTimeout+5*time.Second)
	defer cancel()
	page := comp.Fetcher.Fetch(ctx, c.String("url"))
	if !page.OK() {
		return fmt.Errorf("fetch %s: %s", c.String("url"), page.Error)
	}

	base := page.FinalURL
	if base == "" {
		base = page.URL
	}
	subpages := comp.Ranker.Rank(base, page.Anchors)
	items := make([]any, len(subpages))
	for i, sp := range subpages {
		items[i] = sp
	}
	return ioformats.WriteNDJSON(c.App.Writer, items)
}
