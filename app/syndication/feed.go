// Package syndication renders the RSS feed and the XML sitemap.
package syndication

import (
	"io"
	"strings"
	"time"

	"inkwell/app/models"
	"inkwell/app/query"

	"github.com/gorilla/feeds"
)

const (
	FeedTitle       = "My blog"
	FeedDescription = "New posts of my blog."
	// FeedWords is the length of an item description, in words.
	FeedWords = 30
)

// AbsoluteURL joins the site base URL and a site path.
func AbsoluteURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// Feed builds the RSS feed for posts, which must already be the newest
// published posts in order.
func Feed(baseURL string, posts []*models.Post) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       FeedTitle,
		Link:        &feeds.Link{Href: AbsoluteURL(baseURL, "/")},
		Description: FeedDescription,
	}
	for _, p := range posts {
		link := AbsoluteURL(baseURL, p.AbsoluteURL())
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          link,
			Title:       p.Title,
			Link:        &feeds.Link{Href: link},
			Description: query.TruncateWords(p.Body, FeedWords),
			Created:     p.Publish,
			Updated:     p.UpdatedAt,
		})
	}
	if len(posts) > 0 {
		feed.Updated = posts[0].Publish
	} else {
		feed.Updated = time.Now().UTC()
	}
	return feed
}

// WriteRSS writes the feed as RSS 2.0.
func WriteRSS(w io.Writer, baseURL string, posts []*models.Post) error {
	return Feed(baseURL, posts).WriteRss(w)
}
