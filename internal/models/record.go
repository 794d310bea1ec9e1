package models

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// CountryScore is the evidence gathered for one catalog country.
type CountryScore struct {
	Country  string              `json:"country"`
	Matched  int                 `json:"matched_keyword_count"`
	Total    int                 `json:"total_keyword_count"`
	Score    float64             `json:"score"`
	Keywords map[string][]string `json:"matched_keywords,omitempty"`
}

// CountryScores keeps only countries with a positive score, in catalog
// order. It marshals as a JSON object {country: score} preserving that
// order.
type CountryScores []CountryScore

// Get returns the score for a country, 0 when it is absent.
func (cs CountryScores) Get(country string) float64 {
	for _, c := range cs {
		if c.Country == country {
			return c.Score
		}
	}
	return 0
}

// MarshalJSON writes the scores as an ordered object.
func (cs CountryScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Country)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Score)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the object form written by MarshalJSON. Key order
// in the input is preserved.
func (cs *CountryScores) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	out := CountryScores{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var score float64
		if err := dec.Decode(&score); err != nil {
			return err
		}
		out = append(out, CountryScore{Country: key, Score: score})
	}
	*cs = out
	return nil
}

// Scores is the country-scoring fragment of a record.
type Scores struct {
	Products             []string      `json:"products"`
	Dishes               []string      `json:"dishes"`
	Brands               []string      `json:"brands"`
	OriginCountries      []string      `json:"origin_countries"`
	ProductCount         int           `json:"product_count"`
	CountryMatchCount    int           `json:"country_match_count"`
	TopCountry           string        `json:"top_country"`
	TopCountryScore      float64       `json:"top_country_score"`
	StrongCountryMatches []string      `json:"strong_country_matches"`
	AllPositiveCountries []string      `json:"all_positive_countries"`
	CountryScores        CountryScores `json:"country_scores"`
}

// Record is the enriched output for one entity. Exactly one is produced
// per input entity.
type Record struct {
	Entity
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
	Category string `json:"category,omitempty"`

	Email  string   `json:"email"`
	Emails []string `json:"emails,omitempty"`
	Socials

	Scores

	SubpagesCrawled []Subpage `json:"subpages_crawled"`
	PagesFetched    int       `json:"pages_fetched"`
	Language        string    `json:"language,omitempty"`
	TextContent     string    `json:"text_content,omitempty"`
}

// nullString writes "" as JSON null.
type nullString string

func (s nullString) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// recordJSON is the wire layout of a Record. Attributes are not part of it:
// they are written as extra top-level keys.
type recordJSON struct {
	Row      int      `json:"row_index"`
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Address  string   `json:"address,omitempty"`
	Website  string   `json:"website,omitempty"`
	Types    []string `json:"types,omitempty"`
	City     string   `json:"city,omitempty"`
	Country  string   `json:"country,omitempty"`
	Category string   `json:"category,omitempty"`

	Email     nullString `json:"email"`
	Emails    []string   `json:"emails,omitempty"`
	Instagram nullString `json:"instagram"`
	Twitter   nullString `json:"twitter"`
	Facebook  nullString `json:"facebook"`
	YouTube   nullString `json:"youtube"`
	WhatsApp  nullString `json:"whatsapp"`

	Products             []string      `json:"products"`
	Dishes               []string      `json:"dishes"`
	Brands               []string      `json:"brands"`
	OriginCountries      []string      `json:"origin_countries"`
	ProductCount         int           `json:"product_count"`
	CountryMatchCount    int           `json:"country_match_count"`
	TopCountry           nullString    `json:"top_country"`
	TopCountryScore      float64       `json:"top_country_score"`
	StrongCountryMatches []string      `json:"strong_country_matches"`
	AllPositiveCountries []string      `json:"all_positive_countries"`
	CountryScores        CountryScores `json:"country_scores"`

	SubpagesCrawled []Subpage `json:"subpages_crawled"`
	PagesFetched    int       `json:"pages_fetched"`
	Language        string    `json:"language,omitempty"`
	TextContent     string    `json:"text_content,omitempty"`
}

// recordKeys holds every JSON key of recordJSON. Attributes with one of
// these names are not written, so they cannot shadow a record field.
var recordKeys = func() map[string]bool {
	keys := map[string]bool{"attributes": true}
	t := reflect.TypeOf(recordJSON{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		keys[name] = true
	}
	return keys
}()

// MarshalJSON writes the record as one flat object: entity fields, then
// the derived fields, then the input attributes in key order. Missing
// email, social links and top country are null.
func (r Record) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(recordJSON{
		Row:                  r.Row,
		ID:                   r.ID,
		Name:                 r.Name,
		Address:              r.Address,
		Website:              r.Website,
		Types:                r.Types,
		City:                 r.City,
		Country:              r.Country,
		Category:             r.Category,
		Email:                nullString(r.Email),
		Emails:               r.Emails,
		Instagram:            nullString(r.Instagram),
		Twitter:              nullString(r.Twitter),
		Facebook:             nullString(r.Facebook),
		YouTube:              nullString(r.YouTube),
		WhatsApp:             nullString(r.WhatsApp),
		Products:             r.Products,
		Dishes:               r.Dishes,
		Brands:               r.Brands,
		OriginCountries:      r.OriginCountries,
		ProductCount:         r.ProductCount,
		CountryMatchCount:    r.CountryMatchCount,
		TopCountry:           nullString(r.TopCountry),
		TopCountryScore:      r.TopCountryScore,
		StrongCountryMatches: r.StrongCountryMatches,
		AllPositiveCountries: r.AllPositiveCountries,
		CountryScores:        r.CountryScores,
		SubpagesCrawled:      r.SubpagesCrawled,
		PagesFetched:         r.PagesFetched,
		Language:             r.Language,
		TextContent:          r.TextContent,
	})
	if err != nil || len(r.Attributes) == 0 {
		return b, err
	}

	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		if !recordKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	for _, k := range keys {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Attributes[k])
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// plainRecord decodes with the struct tags of Record and none of its
// methods.
type plainRecord Record

// UnmarshalJSON reads the layout written by MarshalJSON. Keys that are not
// record fields become attributes.
func (r *Record) UnmarshalJSON(data []byte) error {
	var p plainRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if recordKeys[k] {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			s = string(v)
		}
		if p.Attributes == nil {
			p.Attributes = make(map[string]string)
		}
		p.Attributes[k] = s
	}
	*r = Record(p)
	return nil
}
