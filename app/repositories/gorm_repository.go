package repositories

import (
	"errors"
	"fmt"

	"inkwell/app/models"
	"inkwell/app/query"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	searchDocument = "to_tsvector('english', title || ' ' || body)"
	searchMatch    = searchDocument + " @@ plainto_tsquery('english', ?)"
	searchRank     = "ts_rank(" + searchDocument + ", plainto_tsquery('english', ?)) DESC, publish DESC, id DESC"
)

// Migrate creates or updates the Postgres schema, including the
// full-text index used by Search.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Tag{}, &models.Post{}, &models.Comment{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	idx := "CREATE INDEX IF NOT EXISTS idx_posts_search ON posts USING GIN (" + searchDocument + ")"
	if err := db.Exec(idx).Error; err != nil {
		return fmt.Errorf("create search index: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// GormPostRepository implements PostRepository on Postgres.
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GormPostRepository
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// Create inserts a post and links its already saved tags.
func (r *GormPostRepository) Create(post *models.Post) error {
	if err := checkTagsSaved(post.Tags); err != nil {
		return err
	}
	post.BeforeCreate()
	return r.db.Omit("Comments").Create(post).Error
}

// GetByID retrieves a post by ID with its tags
func (r *GormPostRepository) GetByID(id int) (*models.Post, error) {
	var post models.Post
	if err := r.db.Preload("Tags").First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// FindBySlug returns all posts carrying the slug.
func (r *GormPostRepository) FindBySlug(slug string) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.Preload("Tags").Where("slug = ?", slug).Order("publish DESC, id DESC").Find(&posts).Error
	return posts, err
}

// List returns every stored post, newest first.
func (r *GormPostRepository) List() ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.Preload("Tags").Order("publish DESC, id DESC").Find(&posts).Error
	return posts, err
}

// Search uses Postgres full-text search, ranking by ts_rank.
func (r *GormPostRepository) Search(q string) ([]*models.Post, error) {
	if len(query.Terms(q)) == 0 {
		return nil, nil
	}
	var posts []*models.Post
	err := r.db.Preload("Tags").
		Where(searchMatch, q).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: searchRank, Vars: []interface{}{q}, WithoutParentheses: true}}).
		Find(&posts).Error
	return posts, err
}

// Update replaces an existing post and its tag set.
func (r *GormPostRepository) Update(post *models.Post) error {
	if err := checkTagsSaved(post.Tags); err != nil {
		return err
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := tx.Omit(clause.Associations).Save(post).Error; err != nil {
			return err
		}
		return tx.Model(post).Association("Tags").Replace(post.Tags)
	})
}

// GormCommentRepository implements CommentRepository on Postgres.
type GormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new GormCommentRepository
func NewGormCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// Create inserts a new comment.
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	comment.BeforeCreate()
	return r.db.Create(comment).Error
}

// GetByID retrieves a comment by ID
func (r *GormCommentRepository) GetByID(id int) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

// ListByPost retrieves all comments for a post, oldest first.
func (r *GormCommentRepository) ListByPost(postID int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.Where("post_id = ?", postID).Order("created_at ASC, id ASC").Find(&comments).Error
	return comments, err
}

// Update saves the editable fields of an existing comment.
func (r *GormCommentRepository) Update(comment *models.Comment) error {
	res := r.db.Model(comment).Updates(map[string]interface{}{
		"name":   comment.Name,
		"email":  comment.Email,
		"body":   comment.Body,
		"active": comment.Active,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActive counts active comments per post.
func (r *GormCommentRepository) CountActive() (map[int]int, error) {
	var rows []struct {
		PostID int
		Count  int
	}
	err := r.db.Model(&models.Comment{}).
		Select("post_id, count(*) AS count").
		Where("active = ?", true).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.PostID] = row.Count
	}
	return counts, nil
}

// GormTagRepository implements TagRepository on Postgres.
type GormTagRepository struct {
	db *gorm.DB
}

// NewGormTagRepository creates a new GormTagRepository
func NewGormTagRepository(db *gorm.DB) *GormTagRepository {
	return &GormTagRepository{db: db}
}

// FirstOrCreate returns the tag with name's slug, creating it if missing.
func (r *GormTagRepository) FirstOrCreate(name string) (*models.Tag, error) {
	want := models.NewTag(name)
	if err := want.Validate(); err != nil {
		return nil, err
	}
	var tag models.Tag
	err := r.db.Where(models.Tag{Slug: want.Slug}).Attrs(models.Tag{Name: want.Name}).FirstOrCreate(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetBySlug retrieves a tag by its unique slug.
func (r *GormTagRepository) GetBySlug(slug string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, notFound(err)
	}
	return &tag, nil
}

// List returns all tags ordered by name.
func (r *GormTagRepository) List() ([]*models.Tag, error) {
	var tags []*models.Tag
	err := r.db.Order("name").Find(&tags).Error
	return tags, err
}
