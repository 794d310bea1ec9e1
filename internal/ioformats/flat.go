package ioformats

import (
	"encoding/json"
	"strconv"
	"strings"

	"provenance-enricher/internal/models"
)

// RecordColumns are the fixed columns of a flat record row. Attribute
// columns follow them, then one country_scores.<code> column per country.
var RecordColumns = []string{
	"row_index", "id", "name", "address", "website", "types",
	"city", "country", "category",
	"email", "emails",
	"instagram", "twitter", "facebook", "youtube", "whatsapp",
	"products", "dishes", "brands", "origin_countries",
	"product_count", "country_match_count",
	"top_country", "top_country_score",
	"strong_country_matches", "all_positive_countries",
	"pages_fetched", "language", "subpages_crawled", "text_content",
}

// CountryScorePrefix prefixes the per-country score columns.
const CountryScorePrefix = "country_scores."

// JoinList renders a list cell.
func JoinList(list []string) string { return strings.Join(list, ", ") }

// FormatFloat renders a numeric cell without trailing zeros.
func FormatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Flattener turns records into flat rows with a fixed column set.
type Flattener struct {
	attrs     []string
	countries []string
}

func NewFlattener(attrKeys, countryCodes []string) *Flattener {
	return &Flattener{attrs: attrKeys, countries: countryCodes}
}

func (f *Flattener) Header() []string {
	h := append([]string(nil), RecordColumns...)
	h = append(h, f.attrs...)
	for _, c := range f.countries {
		h = append(h, CountryScorePrefix+c)
	}
	return h
}

// Row renders rec in Header order. Countries absent from the record's
// scores get 0.
func (f *Flattener) Row(rec models.Record) ([]string, error) {
	trace, err := json.Marshal(rec.SubpagesCrawled)
	if err != nil {
		return nil, err
	}
	row := []string{
		strconv.Itoa(rec.Row), rec.ID, rec.Name, rec.Address, rec.Website, JoinList(rec.Types),
		rec.City, rec.Country, rec.Category,
		rec.Email, JoinList(rec.Emails),
		rec.Instagram, rec.Twitter, rec.Facebook, rec.YouTube, rec.WhatsApp,
		JoinList(rec.Products), JoinList(rec.Dishes), JoinList(rec.Brands), JoinList(rec.OriginCountries),
		strconv.Itoa(rec.ProductCount), strconv.Itoa(rec.CountryMatchCount),
		rec.TopCountry, FormatFloat(rec.TopCountryScore),
		JoinList(rec.StrongCountryMatches), JoinList(rec.AllPositiveCountries),
		strconv.Itoa(rec.PagesFetched), rec.Language, string(trace), rec.TextContent,
	}
	for _, k := range f.attrs {
		row = append(row, rec.Attributes[k])
	}
	for _, c := range f.countries {
		row = append(row, FormatFloat(rec.CountryScores.Get(c)))
	}
	return row, nil
}
