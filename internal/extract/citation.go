package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/syllogos/internal/model"
)

// Citation is the bibliographic metadata a landing page declares in its
// Highwire (citation_*) and Dublin Core meta tags
type Citation struct {
	Title     string
	Authors   []string
	DOI       string
	Journal   string
	Date      string
	Abstract  string
	PDFURL    string
	Canonical string
}

// ParseCitation reads citation metadata from an HTML page. Relative links
// are resolved against sourceURL.
func ParseCitation(htmlContent, sourceURL string) (*Citation, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	c := &Citation{}
	seenAuthor := make(map[string]bool)
	var pageTitle string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && pageTitle == "" {
					pageTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				if name == "" {
					name = strings.ToLower(attr(n, "property"))
				}
				c.apply(name, strings.TrimSpace(attr(n, "content")), base, seenAuthor)
			case "link":
				if strings.EqualFold(attr(n, "rel"), "canonical") && c.Canonical == "" {
					c.Canonical = resolveURL(base, attr(n, "href"))
				}
			}
		}

		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}

	walk(doc)

	if c.Title == "" {
		c.Title = pageTitle
	}
	return c, nil
}

func (c *Citation) apply(name, content string, base *url.URL, seenAuthor map[string]bool) {
	if content == "" {
		return
	}
	switch name {
	case "citation_title", "dc.title":
		setOnce(&c.Title, content)
	case "citation_author", "dc.creator":
		if !seenAuthor[content] {
			seenAuthor[content] = true
			c.Authors = append(c.Authors, content)
		}
	case "citation_doi":
		setOnce(&c.DOI, NormalizeDOI(content))
	case "dc.identifier":
		if doi := NormalizeDOI(content); strings.HasPrefix(doi, "10.") {
			setOnce(&c.DOI, doi)
		}
	case "citation_journal_title", "citation_conference_title":
		setOnce(&c.Journal, content)
	case "citation_publication_date", "citation_date", "dc.date":
		setOnce(&c.Date, content)
	case "citation_abstract", "dc.description", "description", "og:description":
		setOnce(&c.Abstract, content)
	case "citation_pdf_url":
		setOnce(&c.PDFURL, resolveURL(base, content))
	}
}

// Apply fills the empty fields of paper from c
func (c *Citation) Apply(paper *model.Paper) {
	setOnce(&paper.Title, c.Title)
	setOnce(&paper.DOI, c.DOI)
	setOnce(&paper.Journal, c.Journal)
	setOnce(&paper.PublicationDate, c.Date)
	setOnce(&paper.Abstract, c.Abstract)
	if len(paper.Authors) == 0 && len(c.Authors) > 0 {
		paper.Authors = append([]string(nil), c.Authors...)
	}
	if paper.URL == "" {
		paper.URL = c.Canonical
	}
}

// NormalizeDOI strips resolver prefixes and the doi: scheme
func NormalizeDOI(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(s[len(prefix):])
		}
	}
	return s
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)

	// Only keep http/https URLs
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}
