package models

import "strings"

// NewTag builds a tag from a display name.
func NewTag(name string) *Tag {
	name = strings.TrimSpace(name)
	return &Tag{Name: name, Slug: Slugify(name)}
}

// Validate checks if the tag meets all validation requirements
func (t *Tag) Validate() error {
	return validate.Struct(t)
}
