// Package mock provides in-memory repositories for service and controller tests.
package mock

import (
	"errors"
	"sort"
	"sync"

	"inkwell/app/models"
	"inkwell/app/query"
	"inkwell/app/repositories"
)

// ErrForced is returned by a repository whose Fail field is set.
var ErrForced = errors.New("forced repository failure")

type PostRepository struct {
	posts  map[int]*models.Post
	nextID int
	mutex  sync.RWMutex

	// Fail makes every call return ErrForced.
	Fail bool
}

type CommentRepository struct {
	comments map[int]*models.Comment
	nextID   int
	mutex    sync.RWMutex

	Fail bool
}

type TagRepository struct {
	tags   map[int]*models.Tag
	nextID int
	mutex  sync.RWMutex

	Fail bool
}

func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[int]*models.Post), nextID: 1}
}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{comments: make(map[int]*models.Comment), nextID: 1}
}

func NewTagRepository() *TagRepository {
	return &TagRepository{tags: make(map[int]*models.Tag), nextID: 1}
}

// NewStore bundles fresh mock repositories.
func NewStore() (*repositories.Store, *PostRepository, *CommentRepository, *TagRepository) {
	posts, comments, tags := NewPostRepository(), NewCommentRepository(), NewTagRepository()
	return &repositories.Store{Posts: posts, Comments: comments, Tags: tags}, posts, comments, tags
}

// PostRepository implementation
func (m *PostRepository) Create(post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Fail {
		return ErrForced
	}

	post.BeforeCreate()
	post.ID = m.nextID
	m.nextID++
	m.posts[post.ID] = post
	return nil
}

func (m *PostRepository) GetByID(id int) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Fail {
		return nil, ErrForced
	}

	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return post, nil
}

func (m *PostRepository) FindBySlug(slug string) ([]*models.Post, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	var out []*models.Post
	for _, p := range all {
		if p.Slug == slug {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *PostRepository) List() ([]*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Fail {
		return nil, ErrForced
	}

	posts := make([]*models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, p)
	}
	query.SortByPublish(posts)
	return posts, nil
}

func (m *PostRepository) Search(q string) ([]*models.Post, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	return query.Match(all, q), nil
}

func (m *PostRepository) Update(post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Fail {
		return ErrForced
	}

	if _, exists := m.posts[post.ID]; !exists {
		return repositories.ErrNotFound
	}
	m.posts[post.ID] = post
	return nil
}

// CommentRepository implementation
func (m *CommentRepository) Create(comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Fail {
		return ErrForced
	}

	comment.BeforeCreate()
	comment.ID = m.nextID
	m.nextID++
	m.comments[comment.ID] = comment
	return nil
}

func (m *CommentRepository) GetByID(id int) (*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Fail {
		return nil, ErrForced
	}

	comment, exists := m.comments[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return comment, nil
}

func (m *CommentRepository) Update(comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Fail {
		return ErrForced
	}

	if _, exists := m.comments[comment.ID]; !exists {
		return repositories.ErrNotFound
	}
	m.comments[comment.ID] = comment
	return nil
}

func (m *CommentRepository) ListByPost(postID int) ([]*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Fail {
		return nil, ErrForced
	}

	var comments []*models.Comment
	for _, comment := range m.comments {
		if comment.PostID == postID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func (m *CommentRepository) CountActive() (map[int]int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Fail {
		return nil, ErrForced
	}

	counts := make(map[int]int)
	for _, c := range m.comments {
		if c.Active {
			counts[c.PostID]++
		}
	}
	return counts, nil
}

// TagRepository implementation
func (m *TagRepository) FirstOrCreate(name string) (*models.Tag, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.Fail {
		return nil, ErrForced
	}

	tag := models.NewTag(name)
	if err := tag.Validate(); err != nil {
		return nil, err
	}
	for _, t := range m.tags {
		if t.Slug == tag.Slug {
			return t, nil
		}
	}
	tag.ID = m.nextID
	m.nextID++
	m.tags[tag.ID] = tag
	return tag, nil
}

func (m *TagRepository) GetBySlug(slug string) (*models.Tag, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Fail {
		return nil, ErrForced
	}

	for _, t := range m.tags {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *TagRepository) List() ([]*models.Tag, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Fail {
		return nil, ErrForced
	}

	tags := make([]*models.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}
