// Package langdetect tags site text with its most likely language.
package langdetect

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// maxSample bounds how much text is inspected.
const maxSample = 4000

// Languages the detector chooses from; the catalog's markets write in these.
var Languages = []lingua.Language{
	lingua.Spanish,
	lingua.Portuguese,
	lingua.English,
	lingua.Italian,
	lingua.French,
	lingua.German,
}

type Detector struct {
	d lingua.LanguageDetector
}

func New() *Detector {
	return &Detector{
		d: lingua.NewLanguageDetectorBuilder().
			FromLanguages(Languages...).
			WithMinimumRelativeDistance(0.1).
			Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code of text's language, or ""
// when text is blank or ambiguous. A nil Detector always returns "".
func (d *Detector) Detect(text string) string {
	if d == nil {
		return ""
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if len(text) > maxSample {
		text = text[:maxSample]
		for !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}
	lang, ok := d.d.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
