// Package keywords holds the static knowledge the pipeline runs on: the
// per-country keyword catalog, the alias table, the subpage taxonomy and the
// place-type category table. It is loaded once per process and read-only
// afterwards.
package keywords

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"provenance-enricher/internal/textnorm"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

// DefaultMaxSubpages caps the subpage frontier when the configuration does
// not set one.
const DefaultMaxSubpages = 12

// ErrInvalidCatalog is wrapped by every validation failure in Parse.
var ErrInvalidCatalog = errors.New("invalid keyword catalog")

// Category names, in the order they are scored.
const (
	Products = "products"
	Dishes   = "dishes"
	Brands   = "brands"
)

// Categories lists the keyword categories in scoring order.
var Categories = []string{Products, Dishes, Brands}

// Country is one catalog entry. Keyword lists keep their declared spelling
// and duplicates; both count toward the country's total.
type Country struct {
	Code     string   `yaml:"code"`
	Products []string `yaml:"products"`
	Dishes   []string `yaml:"dishes"`
	Brands   []string `yaml:"brands"`
}

// Keywords returns the keyword list for one category.
func (c Country) Keywords(category string) []string {
	switch category {
	case Products:
		return c.Products
	case Dishes:
		return c.Dishes
	case Brands:
		return c.Brands
	}
	return nil
}

// Total is the number of declared keywords across all categories.
func (c Country) Total() int {
	return len(c.Products) + len(c.Dishes) + len(c.Brands)
}

// Bucket is a named subpage category and the keywords that select it.
type Bucket struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy drives subpage discovery.
type Taxonomy struct {
	Buckets   []Bucket `yaml:"buckets"`
	Blacklist []string `yaml:"blacklist"`
	Max       int      `yaml:"max"`
}

// Config is the whole keyword document.
type Config struct {
	Countries  []Country           `yaml:"countries"`
	Aliases    map[string][]string `yaml:"aliases"`
	Subpages   Taxonomy            `yaml:"subpages"`
	PlaceTypes PlaceTypes          `yaml:"place_types"`
}

// Default parses the catalog compiled into the binary.
func Default() (*Config, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file; an empty path yields the built-in catalog.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML catalog. Alias keys are normalized so
// lookups by normalized keyword succeed regardless of how the file spells
// them.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	aliases := make(map[string][]string, len(cfg.Aliases))
	for k, v := range cfg.Aliases {
		key := textnorm.Normalize(strings.TrimSpace(k))
		aliases[key] = append(aliases[key], v...)
	}
	cfg.Aliases = aliases

	if cfg.Subpages.Max <= 0 {
		cfg.Subpages.Max = DefaultMaxSubpages
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Countries))
	for i, country := range c.Countries {
		code := strings.TrimSpace(country.Code)
		if code == "" {
			return fmt.Errorf("%w: country #%d has no code", ErrInvalidCatalog, i+1)
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("%w: duplicate country %q", ErrInvalidCatalog, code)
		}
		seen[code] = struct{}{}
		c.Countries[i].Code = code
	}

	buckets := make(map[string]struct{}, len(c.Subpages.Buckets))
	for i, b := range c.Subpages.Buckets {
		if b.Name == "" {
			return fmt.Errorf("%w: subpage bucket #%d has no name", ErrInvalidCatalog, i+1)
		}
		if _, dup := buckets[b.Name]; dup {
			return fmt.Errorf("%w: duplicate subpage bucket %q", ErrInvalidCatalog, b.Name)
		}
		buckets[b.Name] = struct{}{}
	}
	return nil
}

// CountryCodes returns the country codes in catalog order.
func (c *Config) CountryCodes() []string {
	codes := make([]string, len(c.Countries))
	for i, country := range c.Countries {
		codes[i] = country.Code
	}
	return codes
}
