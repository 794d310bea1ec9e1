package enrich

import (
	"path/filepath"
	"testing"

	"provenance-enricher/internal/config"
)

func TestWire(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.MaxSubpages = 3
	cfg.DetectLanguage = false

	comp, err := Wire(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	if comp.Ranker.Max() != 3 {
		t.Fatalf("max subpages override not applied: %d", comp.Ranker.Max())
	}
	if len(comp.Catalog.Countries) != 13 || comp.Pipeline == nil || comp.Engine == nil {
		t.Fatalf("incomplete components %+v", comp)
	}
}

func TestWireBadCatalog(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := Wire(cfg, nil, nil); err == nil {
		t.Fatal("expected error for a missing catalog")
	}
}
