// Package scoring matches a site's text against the keyword catalog and
// scores how strongly it points at each country.
package scoring

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"provenance-enricher/internal/keywords"
	"provenance-enricher/internal/models"
	"provenance-enricher/internal/textnorm"
)

// StrongThreshold is the minimum score of a strong country match.
const StrongThreshold = 0.5

type keywordMatcher struct {
	keyword string
	re      *regexp.Regexp // nil when the keyword has no usable variant
}

type countryMatcher struct {
	code       string
	total      int
	categories [][]keywordMatcher // indexed like keywords.Categories
}

// Engine is built once from a catalog and is safe for concurrent use.
type Engine struct {
	countries []countryMatcher
}

func NewEngine(cfg *keywords.Config) *Engine {
	exp := keywords.NewExpander(cfg.Aliases)
	compiled := make(map[string]*regexp.Regexp)

	e := &Engine{}
	for _, c := range cfg.Countries {
		cm := countryMatcher{code: c.Code, total: c.Total()}
		for _, cat := range keywords.Categories {
			var ms []keywordMatcher
			for _, kw := range c.Keywords(cat) {
				re, ok := compiled[kw]
				if !ok {
					re = variantPattern(exp.Expand(kw))
					compiled[kw] = re
				}
				ms = append(ms, keywordMatcher{keyword: kw, re: re})
			}
			cm.categories = append(cm.categories, ms)
		}
		e.countries = append(e.countries, cm)
	}
	return e
}

// variantPattern matches any of the variants as a whole word.
func variantPattern(variants []string) *regexp.Regexp {
	alts := make([]string, 0, len(variants))
	for _, v := range variants {
		if v != "" {
			alts = append(alts, regexp.QuoteMeta(v))
		}
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// Score matches text against every country in catalog order. Countries
// without keywords or without any match are left out of CountryScores.
func (e *Engine) Score(text string) models.Scores {
	norm := textnorm.Normalize(text)
	seen := make(map[*regexp.Regexp]bool)
	matches := func(re *regexp.Regexp) bool {
		if re == nil || norm == "" {
			return false
		}
		hit, ok := seen[re]
		if !ok {
			hit = re.MatchString(norm)
			seen[re] = hit
		}
		return hit
	}

	found := make([][]string, len(keywords.Categories))
	out := models.Scores{CountryScores: models.CountryScores{}}
	for _, c := range e.countries {
		if c.total == 0 {
			continue
		}
		matched := 0
		var perCat map[string][]string
		for i, ms := range c.categories {
			for _, m := range ms {
				if !matches(m.re) {
					continue
				}
				matched++
				if perCat == nil {
					perCat = make(map[string][]string)
				}
				cat := keywords.Categories[i]
				perCat[cat] = append(perCat[cat], m.keyword)
				found[i] = append(found[i], m.keyword)
			}
		}
		if matched == 0 {
			continue
		}
		out.CountryScores = append(out.CountryScores, models.CountryScore{
			Country:  c.code,
			Matched:  matched,
			Total:    c.total,
			Score:    round3(float64(matched) / float64(c.total)),
			Keywords: perCat,
		})
		out.OriginCountries = append(out.OriginCountries, c.code)
	}

	out.Products = sortedSet(found[0])
	out.Dishes = sortedSet(found[1])
	out.Brands = sortedSet(found[2])
	out.ProductCount = len(sortedSet(append(append(append([]string(nil), found[0]...), found[1]...), found[2]...)))
	out.CountryMatchCount = len(out.CountryScores)

	for _, cs := range out.CountryScores {
		if out.TopCountry == "" || cs.Score > out.TopCountryScore {
			out.TopCountry, out.TopCountryScore = cs.Country, cs.Score
		}
	}

	ranked := append(models.CountryScores(nil), out.CountryScores...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	for _, cs := range ranked {
		if cs.Score >= StrongThreshold {
			out.StrongCountryMatches = append(out.StrongCountryMatches, cs.Country)
		}
		if cs.Score > 0 {
			out.AllPositiveCountries = append(out.AllPositiveCountries, cs.Country)
		}
	}
	return out
}

func round3(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 3, 64), 64)
	if err != nil {
		return x
	}
	return r
}

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := set[s]; ok {
			continue
		}
		set[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
