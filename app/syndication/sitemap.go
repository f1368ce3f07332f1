package syndication

import (
	"encoding/xml"
	"io"

	"inkwell/app/models"
)

const (
	sitemapNS  = "http://www.sitemaps.org/schemas/sitemap/0.9"
	ChangeFreq = "weekly"
	Priority   = "0.9"
)

// URLSet is the sitemap document.
type URLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapURL is one sitemap entry.
type SitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Sitemap lists every post, dated by its last update.
func Sitemap(baseURL string, posts []*models.Post) URLSet {
	set := URLSet{XMLNS: sitemapNS, URLs: make([]SitemapURL, 0, len(posts))}
	for _, p := range posts {
		set.URLs = append(set.URLs, SitemapURL{
			Loc:        AbsoluteURL(baseURL, p.AbsoluteURL()),
			LastMod:    p.UpdatedAt.UTC().Format("2006-01-02"),
			ChangeFreq: ChangeFreq,
			Priority:   Priority,
		})
	}
	return set
}

// WriteSitemap encodes the sitemap with an XML declaration.
func WriteSitemap(w io.Writer, baseURL string, posts []*models.Post) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(Sitemap(baseURL, posts))
}
