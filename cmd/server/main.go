package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"provenance-enricher/internal/config"
	"provenance-enricher/internal/enrich"
	"provenance-enricher/internal/metrics"
	"provenance-enricher/internal/server"
	"provenance-enricher/pkg/logger"
)

func main() {
	cfgPath := flag.String("config", "", "config file (yaml, json, toml or .env)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer l.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	comp, err := enrich.Wire(cfg, m, l)
	if err != nil {
		l.Errorf("setup: %v", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr: cfg.ServerAddr,
		Handler: server.NewRouter(server.Deps{
			Enricher:         comp.Pipeline,
			Engine:           comp.Engine,
			Gatherer:         reg,
			Log:              l,
			BatchConcurrency: cfg.BatchConcurrency,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		l.Infof("server listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	l.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Infof("bye")
}
