package keywords

import (
	"strings"

	"provenance-enricher/internal/textnorm"
)

// Pluralize applies the Spanish plural heuristic to a single normalized
// token: vowel endings take "s", a trailing "z" becomes "ces", anything
// else takes "es". Blank input is returned trimmed.
func Pluralize(word string) string {
	w := strings.TrimSpace(word)
	if w == "" {
		return w
	}
	switch last := w[len(w)-1]; {
	case strings.IndexByte("aeiou", last) >= 0:
		return w + "s"
	case last == 'z':
		return w[:len(w)-1] + "ces"
	default:
		return w + "es"
	}
}

// Expander produces the surface forms a keyword may take in page text.
type Expander struct {
	aliases map[string][]string
}

// NewExpander builds an expander over an alias table keyed by normalized
// keyword.
func NewExpander(aliases map[string][]string) *Expander {
	return &Expander{aliases: aliases}
}

// Expand returns the distinct normalized variants of keyword: the keyword
// itself, its registered aliases, and the phrase with its first or last
// token pluralized. The normalized keyword is always the first element.
func (e *Expander) Expand(keyword string) []string {
	base := textnorm.Normalize(keyword)
	out := []string{base}
	seen := map[string]struct{}{base: {}}
	add := func(v string) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	if e != nil {
		for _, alt := range e.aliases[base] {
			add(textnorm.Normalize(alt))
		}
	}

	tokens := strings.Fields(base)
	if len(tokens) == 0 {
		return out
	}
	first := append([]string(nil), tokens...)
	first[0] = Pluralize(first[0])
	add(strings.Join(first, " "))

	last := append([]string(nil), tokens...)
	last[len(last)-1] = Pluralize(last[len(last)-1])
	add(strings.Join(last, " "))
	return out
}
