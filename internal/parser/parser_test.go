package parser

import (
	"reflect"
	"strings"
	"testing"

	"provenance-enricher/internal/models"
)

const sampleHTML = `<!doctype html><html lang="es"><head>
<title>Almacén Criollo</title>
<style>body { color: red }</style>
<script>var hidden = "yerba@script.com";</script>
</head><body>
<h1>Bienvenidos</h1>
<p>Empanadas   y alfajores caseros.</p>
<p>Escribinos a ventas@almacen.com o info@almacen.com.ar, ventas@almacen.com</p>
<noscript>activá javascript</noscript>
<a href="/contacto">Contacto</a>
<a href="https://www.instagram.com/almacen">IG</a>
<a href="https://instagram.com/otro">IG 2</a>
<a href="https://x.com/almacen">X</a>
<a href="https://wa.me/5491100000000">WhatsApp</a>
<a href="">empty</a>
</body></html>`

func TestExtract(t *testing.T) {
	p := New()
	page, err := p.Extract(strings.NewReader(sampleHTML), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	if page.Title != "Almacén Criollo" {
		t.Fatalf("want title, got %q", page.Title)
	}
	if page.Lang != "es" {
		t.Fatalf("want lang es, got %q", page.Lang)
	}
	if !strings.Contains(page.Text, "Empanadas y alfajores caseros.") {
		t.Fatalf("whitespace not collapsed or text missing: %q", page.Text)
	}
	if !strings.HasPrefix(page.Text, "Almacén Criollo Bienvenidos") {
		t.Fatalf("expected document text in order, got %q", page.Text)
	}
	for _, hidden := range []string{"color: red", "script.com", "javascript"} {
		if strings.Contains(page.Text, hidden) {
			t.Fatalf("non-visible content %q leaked into text", hidden)
		}
	}

	wantEmails := []string{"info@almacen.com.ar", "ventas@almacen.com"}
	if !reflect.DeepEqual(page.Emails, wantEmails) {
		t.Fatalf("emails = %v, want %v", page.Emails, wantEmails)
	}

	if len(page.Anchors) != 5 {
		t.Fatalf("expected 5 anchors with href, got %d: %+v", len(page.Anchors), page.Anchors)
	}
	if page.Anchors[0] != (models.Anchor{Href: "/contacto", Text: "Contacto"}) {
		t.Fatalf("unexpected first anchor %+v", page.Anchors[0])
	}

	if page.Socials.Instagram != "https://www.instagram.com/almacen" {
		t.Fatalf("first instagram link should win, got %q", page.Socials.Instagram)
	}
	if page.Socials.Twitter != "https://x.com/almacen" {
		t.Fatalf("x.com should fill twitter, got %q", page.Socials.Twitter)
	}
	if page.Socials.WhatsApp != "https://wa.me/5491100000000" {
		t.Fatalf("unexpected whatsapp %q", page.Socials.WhatsApp)
	}
	if page.Socials.Facebook != "" || page.Socials.YouTube != "" {
		t.Fatalf("unexpected socials %+v", page.Socials)
	}
}

func TestExtractLatin1(t *testing.T) {
	// "Café" encoded as ISO-8859-1.
	body := "<html><body><p>Caf\xe9 con le\xf1a</p></body></html>"
	page, err := New().Extract(strings.NewReader(body), "text/html; charset=iso-8859-1")
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	if page.Text != "Café con leña" {
		t.Fatalf("charset not decoded: %q", page.Text)
	}
}

func TestEmails(t *testing.T) {
	if got := Emails("no contact here"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	got := Emails("b@x.com a@y.org b@x.com")
	if !reflect.DeepEqual(got, []string{"a@y.org", "b@x.com"}) {
		t.Fatalf("unexpected emails %v", got)
	}
}

func TestSocials(t *testing.T) {
	cases := []struct {
		name    string
		anchors []models.Anchor
		want    models.Socials
	}{
		{
			name: "two instagram anchors keep the first",
			anchors: []models.Anchor{
				{Href: "https://instagram.com/first"},
				{Href: "https://instagram.com/second"},
			},
			want: models.Socials{Instagram: "https://instagram.com/first"},
		},
		{
			name: "youtube short links",
			anchors: []models.Anchor{
				{Href: "https://youtu.be/abc"},
				{Href: "https://www.facebook.com/page"},
				{Href: "https://twitter.com/page"},
			},
			want: models.Socials{YouTube: "https://youtu.be/abc", Facebook: "https://www.facebook.com/page", Twitter: "https://twitter.com/page"},
		},
		{
			name: "x.com substring on another host is not twitter",
			anchors: []models.Anchor{
				{Href: "https://www.latinbox.com/"},
			},
			want: models.Socials{},
		},
		{
			name: "whatsapp api domain",
			anchors: []models.Anchor{
				{Href: "https://api.whatsapp.com/send?phone=1"},
			},
			want: models.Socials{WhatsApp: "https://api.whatsapp.com/send?phone=1"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Socials(tc.anchors); got != tc.want {
				t.Fatalf("Socials = %+v, want %+v", got, tc.want)
			}
		})
	}
}
