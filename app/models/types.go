package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Status is the publication state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Post represents a blog post with its tags and comments.
type Post struct {
	ID        int        `json:"id" gorm:"primaryKey" validate:"gte=0"`
	Title     string     `json:"title" gorm:"size:250;not null" validate:"required,max=250"`
	Slug      string     `json:"slug" gorm:"size:250;index;not null" validate:"required,max=250"`
	Body      string     `json:"body" gorm:"type:text;not null" validate:"required"`
	Author    string     `json:"author" gorm:"size:150;not null" validate:"required,max=150"`
	Publish   time.Time  `json:"publish" gorm:"index" validate:"required"`
	CreatedAt time.Time  `json:"created_at" validate:"required"`
	UpdatedAt time.Time  `json:"updated_at"`
	Status    Status     `json:"status" gorm:"size:10;index;default:draft" validate:"oneof=draft published"`
	Tags      []*Tag     `json:"tags,omitempty" gorm:"many2many:post_tags;" validate:"-"`
	Comments  []*Comment `json:"comments,omitempty" gorm:"foreignKey:PostID" validate:"-"`
}

// Comment represents a reader comment on a blog post.
type Comment struct {
	ID        int       `json:"id" gorm:"primaryKey" validate:"gte=0"`
	PostID    int       `json:"post_id" gorm:"index;not null" validate:"required,gt=0"`
	Name      string    `json:"name" gorm:"size:80;not null" validate:"required,max=80"`
	Email     string    `json:"email" gorm:"size:254;not null" validate:"required,email,max=254"`
	Body      string    `json:"body" gorm:"type:text;not null" validate:"required"`
	Active    bool      `json:"active" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
	UpdatedAt time.Time `json:"updated_at"`
	Post      *Post     `json:"-" gorm:"-" validate:"-"`
}

// Tag labels posts; posts and tags are many-to-many.
type Tag struct {
	ID   int    `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:100;not null" validate:"required,max=100"`
	Slug string `json:"slug" gorm:"size:100;uniqueIndex;not null" validate:"required,max=100"`
}
