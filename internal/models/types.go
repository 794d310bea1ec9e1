package models

// Anchor is one <a href> found on a page, in document order.
type Anchor struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Socials holds at most one link per platform. Empty means none found.
type Socials struct {
	Instagram string `json:"instagram"`
	Twitter   string `json:"twitter"`
	Facebook  string `json:"facebook"`
	YouTube   string `json:"youtube"`
	WhatsApp  string `json:"whatsapp"`
}

// Merge fills the empty slots of s from other. Slots already set are kept,
// so the first page to provide a platform wins.
func (s *Socials) Merge(other Socials) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&s.Instagram, other.Instagram)
	fill(&s.Twitter, other.Twitter)
	fill(&s.Facebook, other.Facebook)
	fill(&s.YouTube, other.YouTube)
	fill(&s.WhatsApp, other.WhatsApp)
}

// Page is what the parser extracts from one HTML document.
type Page struct {
	Title   string
	Lang    string
	Text    string
	Emails  []string
	Socials Socials
	Anchors []Anchor
}

// PageResult is the outcome of fetching one URL. A failed fetch yields a
// result with empty text, no emails, no socials and no anchors; Status is 0
// when no response arrived at all.
type PageResult struct {
	URL      string   `json:"url"`
	FinalURL string   `json:"final_url,omitempty"`
	Status   int      `json:"status"`
	Error    string   `json:"error,omitempty"`
	FetchMs  int64    `json:"fetch_ms"`
	Title    string   `json:"title,omitempty"`
	Lang     string   `json:"lang,omitempty"`
	Text     string   `json:"text"`
	Emails   []string `json:"emails"`
	Socials  Socials  `json:"socials"`
	Anchors  []Anchor `json:"-"`
}

// OK reports whether a document was retrieved and parsed.
func (p PageResult) OK() bool {
	return p.Error == "" && p.Status >= 200 && p.Status < 300
}

// Subpage is one entry of the crawl frontier and of the crawl trace.
type Subpage struct {
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
}

// SiteBundle merges the main page of a site with its selected subpages.
type SiteBundle struct {
	Website      string    `json:"website"`
	CombinedText string    `json:"combined_text"`
	Emails       []string  `json:"emails"`
	Socials      Socials   `json:"socials"`
	Subpages     []Subpage `json:"subpages_crawled"`
	Pages        int       `json:"pages_fetched"`
	Language     string    `json:"language,omitempty"`
}

// Entity is one input business record.
type Entity struct {
	Row        int               `json:"row_index"`
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Address    string            `json:"address,omitempty"`
	Website    string            `json:"website,omitempty"`
	Types      []string          `json:"types,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
