package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"provenance-enricher/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriteAndCount(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := models.Record{
		Entity: models.Entity{Row: 0, ID: "abc", Website: "https://a.test", Attributes: map[string]string{"rating": "4.5"}},
		Email:  "a@a.test",
		Scores: models.Scores{
			Products:      []string{"alfajores", "empanadas"},
			TopCountry:    "uruguay",
			CountryScores: models.CountryScores{{Country: "argentina", Score: 0.018}, {Country: "uruguay", Score: 0.05}},
		},
	}
	if err := s.Write(ctx, rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// same row index replaces
	rec.Email = "b@a.test"
	if err := s.Write(ctx, rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(ctx, models.Record{Entity: models.Entity{Row: 1, ID: "no-site"}}); err != nil {
		t.Fatalf("Write null record: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v; want 2", n, err)
	}

	var email, products, scores, trace string
	var name sql.NullString
	err = s.db.QueryRowContext(ctx, "SELECT email, products, country_scores, subpages_crawled, name FROM records WHERE row_index = 0").
		Scan(&email, &products, &scores, &trace, &name)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if email != "b@a.test" || products != "alfajores, empanadas" || scores != `{"argentina":0.018,"uruguay":0.05}` {
		t.Fatalf("unexpected row: %s %s %s", email, products, scores)
	}
	if trace != "null" && trace != "[]" {
		t.Fatalf("unexpected trace %q", trace)
	}
	if name.Valid {
		t.Fatalf("empty name should be NULL")
	}

	var nullScores string
	if err := s.db.QueryRowContext(ctx, "SELECT country_scores FROM records WHERE row_index = 1").Scan(&nullScores); err != nil {
		t.Fatalf("query: %v", err)
	}
	if nullScores != "{}" {
		t.Fatalf("null fragment scores = %q, want {}", nullScores)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Write(context.Background(), models.Record{Entity: models.Entity{ID: "x"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if n, _ := reopened.Count(context.Background()); n != 1 {
		t.Fatalf("expected persisted row, got %d", n)
	}
}
