// Package textnorm folds free text into the comparable form used by every
// matcher in the pipeline: accent-free, ASCII-only, lower case.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nonASCII matches every rune left over after compatibility decomposition
// that has no ASCII form, combining marks included.
var nonASCII = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })

// Normalize decomposes s (NFKD), drops every non-ASCII rune and lower-cases
// the remainder. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// transform.Chain keeps internal state, so it is built per call.
	t := transform.Chain(norm.NFKD, runes.Remove(nonASCII))
	out, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	return strings.ToLower(out)
}
