package keywords

import (
	"sort"
	"strings"
)

// PlaceTypes maps directory type tags (e.g. "bakery") to a human-facing
// business category.
type PlaceTypes map[string]string

// Category maps each tag, skips unmapped ones and joins the distinct
// categories in sorted order. It returns "" when nothing maps.
func (p PlaceTypes) Category(types []string) string {
	set := make(map[string]struct{})
	for _, t := range types {
		if c, ok := p[strings.TrimSpace(t)]; ok && c != "" {
			set[c] = struct{}{}
		}
	}
	if len(set) == 0 {
		return ""
	}
	cats := make([]string, 0, len(set))
	for c := range set {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return strings.Join(cats, ", ")
}
