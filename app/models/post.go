package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}

	if p.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}

	return nil
}

// BeforeCreate fills in the timestamps and slug a new post needs.
func (p *Post) BeforeCreate() {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.Publish.IsZero() {
		p.Publish = now
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
}

// IsVisible reports whether readers may see the post at the given instant.
func (p *Post) IsVisible(now time.Time) bool {
	return p.Status == StatusPublished && !p.Publish.After(now)
}

// AbsoluteURL is the canonical detail path, built from the UTC publish date.
func (p *Post) AbsoluteURL() string {
	d := p.Publish.UTC()
	return fmt.Sprintf("/%d/%d/%d/%s/", d.Year(), int(d.Month()), d.Day(), p.Slug)
}

// PublishedOn reports whether the post was published on the given calendar day (UTC).
func (p *Post) PublishedOn(year, month, day int) bool {
	d := p.Publish.UTC()
	return d.Year() == year && int(d.Month()) == month && d.Day() == day
}

// TagIDs returns the ids of the post's tags.
func (p *Post) TagIDs() []int {
	ids := make([]int, 0, len(p.Tags))
	for _, t := range p.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// HasTag reports whether the post carries the tag with the given id.
func (p *Post) HasTag(tagID int) bool {
	for _, t := range p.Tags {
		if t.ID == tagID {
			return true
		}
	}
	return false
}

// AddComment adds a comment to the post
func (p *Post) AddComment(comment *Comment) error {
	if comment == nil {
		return errors.New("comment cannot be nil")
	}

	comment.PostID = p.ID
	p.Comments = append(p.Comments, comment)
	return nil
}

// ActiveComments returns the comments that are publicly visible.
func (p *Post) ActiveComments() []*Comment {
	var out []*Comment
	for _, c := range p.Comments {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}

// Slugify derives a URL-safe slug from a title.
func Slugify(title string) string {
	return slug.Make(title)
}
