package repositories

import (
	"fmt"
	"time"

	"inkwell/app/models"
	"inkwell/app/query"

	"github.com/dgraph-io/badger/v4"
)

// postRecord is the stored form of a post: tags are kept as ids and
// comments live under their own keys.
type postRecord struct {
	models.Post
	TagRefs []int `json:"tag_ids"`
}

func newPostRecord(p *models.Post) postRecord {
	rec := postRecord{Post: *p, TagRefs: p.TagIDs()}
	rec.Tags = nil
	rec.Comments = nil
	return rec
}

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// Create assigns an id and stores a new post.
func (r *BadgerPostRepository) Create(post *models.Post) error {
	if err := checkTagsSaved(post.Tags); err != nil {
		return err
	}
	post.BeforeCreate()

	return r.db.Update(func(txn *badger.Txn) error {
		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id
		return putEntity(txn, postKey(post.ID), newPostRecord(post))
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(id int) (*models.Post, error) {
	var post *models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		var rec postRecord
		if err := getEntity(txn, postKey(id), &rec); err != nil {
			return err
		}
		var err error
		post, err = resolvePost(txn, &rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// FindBySlug returns all posts carrying the slug.
func (r *BadgerPostRepository) FindBySlug(slug string) ([]*models.Post, error) {
	all, err := r.scan()
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

// List returns every stored post, newest first.
func (r *BadgerPostRepository) List() ([]*models.Post, error) {
	posts, err := r.scan()
	if err != nil {
		return nil, err
	}
	query.SortByPublish(posts)
	return posts, nil
}

// Search ranks stored posts against the query terms.
func (r *BadgerPostRepository) Search(q string) ([]*models.Post, error) {
	if len(query.Terms(q)) == 0 {
		return nil, nil
	}
	posts, err := r.scan()
	if err != nil {
		return nil, err
	}
	return query.Match(posts, q), nil
}

func (r *BadgerPostRepository) scan() ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec postRecord
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &rec)
			})
			if err != nil {
				return err
			}
			post, err := resolvePost(txn, &rec)
			if err != nil {
				return err
			}
			posts = append(posts, post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Update replaces an existing post, including its tag set.
func (r *BadgerPostRepository) Update(post *models.Post) error {
	if err := checkTagsSaved(post.Tags); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := postKey(post.ID)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}

		post.UpdatedAt = time.Now().UTC()
		return putEntity(txn, key, newPostRecord(post))
	})
}

// resolvePost expands a stored record's tag ids into tags. Tags that no
// longer exist are skipped.
func resolvePost(txn *badger.Txn, rec *postRecord) (*models.Post, error) {
	post := rec.Post
	post.Tags = make([]*models.Tag, 0, len(rec.TagRefs))
	for _, id := range rec.TagRefs {
		var tag models.Tag
		err := getEntity(txn, tagKey(id), &tag)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		post.Tags = append(post.Tags, &tag)
	}
	return &post, nil
}

func checkTagsSaved(tags []*models.Tag) error {
	for _, t := range tags {
		if t == nil || t.ID == 0 {
			return fmt.Errorf("post tag %v has not been saved", t)
		}
	}
	return nil
}
