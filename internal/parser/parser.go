package parser

import (
	"bytes"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"provenance-enricher/internal/models"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)
)

// Extract decodes an HTML document and pulls out its visible text, the
// email addresses that appear in that text, social profile links and every
// anchor.
func (p *Parser) Extract(r io.Reader, contentType string) (models.Page, error) {
	// Decode to UTF-8 if needed
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return models.Page{}, err
	}
	data := buf.Bytes()

	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return models.Page{}, err
		}
		utf8data = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return models.Page{}, err
	}

	doc.Find("script,noscript,style,template").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	page := models.Page{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Lang:  strings.TrimSpace(doc.Find("html").AttrOr("lang", "")),
	}
	page.Text = visibleText(doc)
	page.Emails = Emails(page.Text)

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		page.Anchors = append(page.Anchors, models.Anchor{
			Href: href,
			Text: strings.TrimSpace(whitespaceRe.ReplaceAllString(s.Text(), " ")),
		})
	})
	page.Socials = Socials(page.Anchors)

	return page, nil
}

// visibleText joins every non-blank text node of the document with single
// spaces.
func visibleText(doc *goquery.Document) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.Join(parts, " "), " "))
}

// Emails returns the distinct email-shaped substrings of text, sorted.
func Emails(text string) []string {
	found := emailRe.FindAllString(text, -1)
	if len(found) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(found))
	out := make([]string, 0, len(found))
	for _, e := range found {
		if _, ok := set[e]; ok {
			continue
		}
		set[e] = struct{}{}
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

type platform struct {
	slot    func(*models.Socials) *string
	matches func(href string, host string) bool
}

func contains(subs ...string) func(string, string) bool {
	return func(href, _ string) bool {
		for _, s := range subs {
			if strings.Contains(href, s) {
				return true
			}
		}
		return false
	}
}

// Checked in order; an anchor fills the first platform it matches whose
// slot is still empty.
var platforms = []platform{
	{func(s *models.Socials) *string { return &s.Instagram }, contains("instagram.com")},
	{func(s *models.Socials) *string { return &s.Twitter }, func(href, host string) bool {
		return strings.Contains(href, "twitter.com") || host == "x.com" || strings.HasSuffix(host, ".x.com")
	}},
	{func(s *models.Socials) *string { return &s.Facebook }, contains("facebook.com")},
	{func(s *models.Socials) *string { return &s.YouTube }, contains("youtube.com", "youtu.be")},
	{func(s *models.Socials) *string { return &s.WhatsApp }, contains("wa.me", "whatsapp.com")},
}

// Socials scans anchors in document order and keeps the first link found
// for each platform.
func Socials(anchors []models.Anchor) models.Socials {
	var out models.Socials
	for _, a := range anchors {
		lower := strings.ToLower(a.Href)
		host := ""
		if u, err := url.Parse(lower); err == nil {
			host = u.Hostname()
		}
		for _, p := range platforms {
			dst := p.slot(&out)
			if *dst == "" && p.matches(lower, host) {
				*dst = a.Href
				break
			}
		}
	}
	return out
}
