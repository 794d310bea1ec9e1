package langdetect

import (
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	d := New()
	cases := []struct {
		name, text, want string
	}{
		{"spanish", "Somos una tienda de productos argentinos. Vendemos alfajores, yerba mate y dulce de leche con envíos a domicilio en toda la ciudad.", "es"},
		{"portuguese", "Somos uma loja de produtos brasileiros. Vendemos pão de queijo, guaraná e feijoada com entrega em toda a cidade.", "pt"},
		{"english", "We are a family owned grocery store selling imported products from Latin America with delivery across the city.", "en"},
		{"blank", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.Detect(tc.text); got != tc.want {
				t.Fatalf("Detect = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDetectLongTextTruncatedOnRuneBoundary(t *testing.T) {
	text := strings.Repeat("Empanadas y alfajores de la abuela, recién horneados. ", 200)
	if got := New().Detect(text); got != "es" {
		t.Fatalf("Detect = %q, want es", got)
	}
}

func TestNilDetector(t *testing.T) {
	var d *Detector
	if got := d.Detect("hola mundo"); got != "" {
		t.Fatalf("nil detector returned %q", got)
	}
}
