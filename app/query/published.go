// Package query derives the reader-facing views over the content store:
// the published view, tag filtering, pagination, text matching and
// similar-post ranking. Every function is pure and takes "now" explicitly.
package query

import (
	"sort"
	"time"

	"inkwell/app/models"
)

// Published returns the posts readers may see at now, newest first.
func Published(posts []*models.Post, now time.Time) []*models.Post {
	out := PublishedOnly(posts, now)
	SortByPublish(out)
	return out
}

// PublishedOnly filters like Published but keeps the input order.
func PublishedOnly(posts []*models.Post, now time.Time) []*models.Post {
	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p.IsVisible(now) {
			out = append(out, p)
		}
	}
	return out
}

// SortByPublish orders posts by publish time descending, newest id first on ties.
func SortByPublish(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return newer(posts[i], posts[j])
	})
}

func newer(a, b *models.Post) bool {
	if !a.Publish.Equal(b.Publish) {
		return a.Publish.After(b.Publish)
	}
	return a.ID > b.ID
}

// ByTag keeps the posts carrying the tag. A nil tag passes everything through.
func ByTag(posts []*models.Post, tag *models.Tag) []*models.Post {
	if tag == nil {
		return posts
	}
	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p.HasTag(tag.ID) {
			out = append(out, p)
		}
	}
	return out
}

// Latest returns at most n posts of an already ordered view.
func Latest(posts []*models.Post, n int) []*models.Post {
	if n < 0 {
		n = 0
	}
	if len(posts) > n {
		return posts[:n]
	}
	return posts
}

// Commented pairs a post with its comment count.
type Commented struct {
	Post  *models.Post
	Count int
}

// MostCommented ranks posts by comment count, most recent first on ties,
// and returns at most n of them.
func MostCommented(posts []*models.Post, counts map[int]int, n int) []Commented {
	out := make([]Commented, 0, len(posts))
	for _, p := range posts {
		out = append(out, Commented{Post: p, Count: counts[p.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return newer(out[i].Post, out[j].Post)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
