// Package store writes flat record rows into a SQLite file. The table is
// an output artifact; the pipeline never reads it back.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"provenance-enricher/internal/ioformats"
	"provenance-enricher/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	row_index INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	name TEXT,
	address TEXT,
	website TEXT,
	types TEXT,
	city TEXT,
	country TEXT,
	category TEXT,
	email TEXT,
	emails TEXT,
	instagram TEXT,
	twitter TEXT,
	facebook TEXT,
	youtube TEXT,
	whatsapp TEXT,
	products TEXT,
	dishes TEXT,
	brands TEXT,
	origin_countries TEXT,
	product_count INTEGER NOT NULL DEFAULT 0,
	country_match_count INTEGER NOT NULL DEFAULT 0,
	top_country TEXT,
	top_country_score REAL NOT NULL DEFAULT 0,
	strong_country_matches TEXT,
	all_positive_countries TEXT,
	pages_fetched INTEGER NOT NULL DEFAULT 0,
	language TEXT,
	country_scores TEXT NOT NULL DEFAULT '{}',
	subpages_crawled TEXT NOT NULL DEFAULT '[]',
	attributes TEXT,
	text_content TEXT
);
CREATE INDEX IF NOT EXISTS idx_records_top_country ON records(top_country);
`

const insertRecord = `
INSERT OR REPLACE INTO records (
	row_index, id, name, address, website, types, city, country, category,
	email, emails, instagram, twitter, facebook, youtube, whatsapp,
	products, dishes, brands, origin_countries, product_count, country_match_count,
	top_country, top_country_score, strong_country_matches, all_positive_countries,
	pages_fetched, language, country_scores, subpages_crawled, attributes, text_content
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite file at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Write inserts rec, replacing any row with the same row index.
func (s *Store) Write(ctx context.Context, rec models.Record) error {
	scores, err := json.Marshal(rec.CountryScores)
	if err != nil {
		return err
	}
	trace, err := json.Marshal(rec.SubpagesCrawled)
	if err != nil {
		return err
	}
	var attrs any
	if len(rec.Attributes) > 0 {
		b, err := json.Marshal(rec.Attributes)
		if err != nil {
			return err
		}
		attrs = string(b)
	}
	list := func(l []string) any { return nullable(ioformats.JoinList(l)) }

	_, err = s.db.ExecContext(ctx, insertRecord,
		rec.Row, rec.ID, nullable(rec.Name), nullable(rec.Address), nullable(rec.Website), list(rec.Types),
		nullable(rec.City), nullable(rec.Country), nullable(rec.Category),
		nullable(rec.Email), list(rec.Emails),
		nullable(rec.Instagram), nullable(rec.Twitter), nullable(rec.Facebook), nullable(rec.YouTube), nullable(rec.WhatsApp),
		list(rec.Products), list(rec.Dishes), list(rec.Brands), list(rec.OriginCountries),
		rec.ProductCount, rec.CountryMatchCount,
		nullable(rec.TopCountry), rec.TopCountryScore, list(rec.StrongCountryMatches), list(rec.AllPositiveCountries),
		rec.PagesFetched, nullable(rec.Language), string(scores), string(trace), attrs, nullable(rec.TextContent),
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}

func (s *Store) Close() error { return s.db.Close() }
