package controllers

import (
	"bytes"
	"log"
	"net/http"

	"inkwell/app/services"
	"inkwell/app/syndication"
)

// SyndicationController serves the RSS feed and the sitemap.
type SyndicationController struct {
	posts   *services.PostService
	baseURL string
}

// NewSyndicationController creates a new SyndicationController
func NewSyndicationController(posts *services.PostService, baseURL string) *SyndicationController {
	return &SyndicationController{posts: posts, baseURL: baseURL}
}

// Feed serves the latest published posts as RSS 2.0.
func (sc *SyndicationController) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := sc.posts.FeedItems()
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := syndication.WriteRSS(&buf, sc.baseURL, posts); err != nil {
		sendFailure(w, r, err)
		return
	}
	sc.write(w, "application/rss+xml; charset=utf-8", &buf)
}

// Sitemap lists every published post.
func (sc *SyndicationController) Sitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := sc.posts.SitemapPosts()
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := syndication.WriteSitemap(&buf, sc.baseURL, posts); err != nil {
		sendFailure(w, r, err)
		return
	}
	sc.write(w, "application/xml; charset=utf-8", &buf)
}

func (sc *SyndicationController) write(w http.ResponseWriter, contentType string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("write response: %v", err)
	}
}
