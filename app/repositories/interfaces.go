package repositories

import "inkwell/app/models"

// PostRepository defines the interface for post data access.
// Posts returned by every read method carry their tags.
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id int) (*models.Post, error)
	// FindBySlug returns every post with the slug, whatever its date or status.
	FindBySlug(slug string) ([]*models.Post, error)
	// List returns all posts, newest publish date first.
	List() ([]*models.Post, error)
	Update(post *models.Post) error
	// Search returns posts matching the query, best match first.
	Search(query string) ([]*models.Post, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByID(id int) (*models.Comment, error)
	// ListByPost returns a post's comments in creation order.
	ListByPost(postID int) ([]*models.Comment, error)
	Update(comment *models.Comment) error
	// CountActive returns the number of active comments per post id.
	CountActive() (map[int]int, error)
}

// TagRepository defines the interface for tag data access
type TagRepository interface {
	// FirstOrCreate returns the tag whose slug matches name, creating it if needed.
	FirstOrCreate(name string) (*models.Tag, error)
	GetBySlug(slug string) (*models.Tag, error)
	List() ([]*models.Tag, error)
}
