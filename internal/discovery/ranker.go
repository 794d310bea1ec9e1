// Package discovery selects which same-site subpages of a business website
// are worth fetching, and in what order.
package discovery

import (
	"net/url"
	"sort"
	"strings"

	"provenance-enricher/internal/keywords"
	"provenance-enricher/internal/models"
	"provenance-enricher/internal/textnorm"
)

type bucket struct {
	name     string
	keywords []string // normalized
}

// Ranker classifies anchors into taxonomy buckets and ranks the resulting
// candidates. It is immutable and safe for concurrent use.
type Ranker struct {
	buckets   []bucket
	blacklist []string
	max       int
}

func NewRanker(t keywords.Taxonomy) *Ranker {
	r := &Ranker{max: t.Max}
	if r.max <= 0 {
		r.max = keywords.DefaultMaxSubpages
	}
	for _, b := range t.Buckets {
		nb := bucket{name: b.Name}
		for _, kw := range b.Keywords {
			if n := textnorm.Normalize(kw); n != "" {
				nb.keywords = append(nb.keywords, n)
			}
		}
		r.buckets = append(r.buckets, nb)
	}
	for _, s := range t.Blacklist {
		if s = strings.ToLower(s); s != "" {
			r.blacklist = append(r.blacklist, s)
		}
	}
	return r
}

// Max is the frontier cap.
func (r *Ranker) Max() int { return r.max }

// Bucket returns the first bucket whose keyword occurs in the normalized
// href or the normalized link text, or "" when none does.
func (r *Ranker) Bucket(href, text string) string {
	h := textnorm.Normalize(href)
	t := textnorm.Normalize(text)
	for _, b := range r.buckets {
		for _, kw := range b.keywords {
			if strings.Contains(h, kw) || strings.Contains(t, kw) {
				return b.name
			}
		}
	}
	return ""
}

// Score favours URLs hitting many buckets, then shorter URLs.
func (r *Ranker) Score(rawURL string) int {
	u := rankingForm(rawURL)
	hits := 0
	for _, b := range r.buckets {
		for _, kw := range b.keywords {
			if strings.Contains(u, kw) {
				hits++
				break
			}
		}
	}
	return hits*1000 - len(u)
}

func (r *Ranker) blacklisted(href string) bool {
	lower := strings.ToLower(href)
	for _, s := range r.blacklist {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Rank returns at most Max() same-host subpages of base, best first.
// Anchors that are blacklisted, off-site or match no bucket are dropped.
// A URL reached by several anchors keeps its first position and the
// bucket of its last anchor.
func (r *Ranker) Rank(base string, anchors []models.Anchor) []models.Subpage {
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return nil
	}

	var order []string
	buckets := make(map[string]string)
	for _, a := range anchors {
		href := strings.TrimSpace(a.Href)
		if href == "" || r.blacklisted(href) {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		full := baseURL.ResolveReference(ref)
		if full.Scheme != "http" && full.Scheme != "https" {
			continue
		}
		if !strings.EqualFold(full.Host, baseURL.Host) {
			continue
		}
		name := r.Bucket(href, a.Text)
		if name == "" {
			continue
		}
		full.Fragment, full.RawFragment = "", ""
		key := full.String()
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = name
	}

	scores := make(map[string]int, len(order))
	for _, u := range order {
		scores[u] = r.Score(u)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if len(order) > r.max {
		order = order[:r.max]
	}

	out := make([]models.Subpage, len(order))
	for i, u := range order {
		out[i] = models.Subpage{URL: u, Bucket: buckets[u]}
	}
	return out
}

// rankingForm is the normalized, percent-decoded URL used for scoring.
func rankingForm(rawURL string) string {
	if dec, err := url.PathUnescape(rawURL); err == nil {
		rawURL = dec
	}
	return textnorm.Normalize(rawURL)
}
