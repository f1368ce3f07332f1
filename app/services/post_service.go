package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"inkwell/app/models"
	"inkwell/app/query"
	"inkwell/app/repositories"
)

const (
	// FeedLimit is the number of posts in the RSS feed.
	FeedLimit = 5
	// SidebarLimit bounds the latest and most-commented sidebar lists.
	SidebarLimit = 5
)

// PostService handles reader-facing queries over posts and authoring.
type PostService struct {
	postRepo    repositories.PostRepository
	commentRepo repositories.CommentRepository
	tagRepo     repositories.TagRepository
	now         func() time.Time
}

// NewPostService creates a new PostService
func NewPostService(store *repositories.Store) *PostService {
	return &PostService{
		postRepo:    store.Posts,
		commentRepo: store.Comments,
		tagRepo:     store.Tags,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used to decide visibility.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

// Listing is one page of the post list, optionally filtered by tag.
type Listing struct {
	Tag  *models.Tag
	Page query.Page[*models.Post]
}

// Sidebar carries the figures shown next to every page.
type Sidebar struct {
	TotalPosts    int
	Latest        []*models.Post
	MostCommented []query.Commented
}

// NewPost is the authoring input for CreatePost.
type NewPost struct {
	Title   string
	Slug    string
	Body    string
	Author  string
	Status  models.Status
	Publish time.Time
	Tags    []string
}

func (s *PostService) published() ([]*models.Post, error) {
	posts, err := s.postRepo.List()
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return query.Published(posts, s.now()), nil
}

// List returns the requested page of published posts. A non-empty tagSlug
// restricts the list to that tag and yields ErrNotFound for unknown tags.
func (s *PostService) List(tagSlug, pageToken string) (*Listing, error) {
	var tag *models.Tag
	if tagSlug != "" {
		var err error
		tag, err = s.tagRepo.GetBySlug(tagSlug)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", tagSlug, err)
		}
	}

	posts, err := s.published()
	if err != nil {
		return nil, err
	}
	posts = query.ByTag(posts, tag)
	return &Listing{Tag: tag, Page: query.Paginate(posts, query.PostsPerPage, pageToken)}, nil
}

// GetPublished finds the visible post published on the given date with the
// given slug, with its active comments attached.
func (s *PostService) GetPublished(year, month, day int, slug string) (*models.Post, error) {
	candidates, err := s.postRepo.FindBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("find post %q: %w", slug, err)
	}
	now := s.now()
	for _, p := range candidates {
		if p.IsVisible(now) && p.PublishedOn(year, month, day) {
			return s.withComments(p)
		}
	}
	return nil, fmt.Errorf("post %d/%d/%d/%s: %w", year, month, day, slug, repositories.ErrNotFound)
}

// GetPublishedByID finds a visible post by id.
func (s *PostService) GetPublishedByID(id int) (*models.Post, error) {
	p, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", id, err)
	}
	if !p.IsVisible(s.now()) {
		return nil, fmt.Errorf("post %d: %w", id, repositories.ErrNotFound)
	}
	return p, nil
}

func (s *PostService) withComments(p *models.Post) (*models.Post, error) {
	comments, err := s.commentRepo.ListByPost(p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	p.Comments = comments
	return p, nil
}

// Similar returns up to four published posts sharing tags with post.
func (s *PostService) Similar(post *models.Post) ([]*models.Post, error) {
	posts, err := s.published()
	if err != nil {
		return nil, err
	}
	return query.Similar(post, posts, query.SimilarLimit), nil
}

// Search returns published posts matching q, best match first. A blank
// query returns no results.
func (s *PostService) Search(q string) ([]*models.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	found, err := s.postRepo.Search(q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	return query.PublishedOnly(found, s.now()), nil
}

// Sidebar computes the post count, latest posts and most commented posts.
func (s *PostService) Sidebar() (*Sidebar, error) {
	posts, err := s.published()
	if err != nil {
		return nil, err
	}
	counts, err := s.commentRepo.CountActive()
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	return &Sidebar{
		TotalPosts:    len(posts),
		Latest:        query.Latest(posts, SidebarLimit),
		MostCommented: query.MostCommented(posts, counts, SidebarLimit),
	}, nil
}

// FeedItems returns the most recent published posts for the RSS feed.
func (s *PostService) FeedItems() ([]*models.Post, error) {
	posts, err := s.published()
	if err != nil {
		return nil, err
	}
	return query.Latest(posts, FeedLimit), nil
}

// SitemapPosts returns every published post.
func (s *PostService) SitemapPosts() ([]*models.Post, error) {
	return s.published()
}

// CreatePost creates a post, creating its tags by name as needed. The slug
// defaults to one derived from the title and must be unique per publish date.
func (s *PostService) CreatePost(in NewPost) (*models.Post, error) {
	post := &models.Post{
		Title:   strings.TrimSpace(in.Title),
		Slug:    strings.TrimSpace(in.Slug),
		Body:    in.Body,
		Author:  strings.TrimSpace(in.Author),
		Status:  in.Status,
		Publish: in.Publish.UTC(),
	}
	if in.Publish.IsZero() {
		post.Publish = s.now()
	}
	post.BeforeCreate()
	if err := post.Validate(); err != nil {
		return nil, fmt.Errorf("invalid post: %w", err)
	}

	existing, err := s.postRepo.FindBySlug(post.Slug)
	if err != nil {
		return nil, err
	}
	d := post.Publish
	for _, e := range existing {
		if e.PublishedOn(d.Year(), int(d.Month()), d.Day()) {
			return nil, fmt.Errorf("%s on %s: %w", post.Slug, d.Format("2006-01-02"), repositories.ErrDuplicateSlug)
		}
	}

	for _, name := range in.Tags {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tag, err := s.tagRepo.FirstOrCreate(name)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", name, err)
		}
		if !post.HasTag(tag.ID) {
			post.Tags = append(post.Tags, tag)
		}
	}

	if err := s.postRepo.Create(post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// SetStatus publishes or withdraws an existing post.
func (s *PostService) SetStatus(id int, status models.Status) (*models.Post, error) {
	p, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", id, err)
	}
	updated := *p
	updated.Status = status
	if err := updated.Validate(); err != nil {
		return nil, fmt.Errorf("invalid post: %w", err)
	}
	if err := s.postRepo.Update(&updated); err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	return &updated, nil
}

// Tags returns every tag ordered by name.
func (s *PostService) Tags() ([]*models.Tag, error) {
	tags, err := s.tagRepo.List()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// IsNotFound reports whether err means the requested content does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}
