package repositories

import (
	"fmt"
	"sort"
	"time"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB.
// Comments are keyed by post so a post's thread is one prefix scan; a
// secondary index maps comment ids to those keys.
type BadgerCommentRepository struct {
	db *badger.DB
}

// NewBadgerCommentRepository creates a new BadgerCommentRepository
func NewBadgerCommentRepository(db *badger.DB) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db}
}

// Create creates a new comment on an existing post.
func (r *BadgerCommentRepository) Create(comment *models.Comment) error {
	comment.BeforeCreate()
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(postKey(comment.PostID)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("comment on post %d: %w", comment.PostID, ErrNotFound)
		} else if err != nil {
			return err
		}

		id, err := getNextID(txn, CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id

		key := commentKey(comment.PostID, comment.ID)
		if err := putEntity(txn, key, comment); err != nil {
			return err
		}
		return txn.Set(commentIndexKey(comment.ID), key)
	})
}

// lookup resolves a comment id to its primary key.
func lookup(txn *badger.Txn, id int) ([]byte, error) {
	item, err := txn.Get(commentIndexKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// GetByID retrieves a comment by ID
func (r *BadgerCommentRepository) GetByID(id int) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		key, err := lookup(txn, id)
		if err != nil {
			return err
		}
		return getEntity(txn, key, &comment)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost retrieves all comments for a post, oldest first.
func (r *BadgerCommentRepository) ListByPost(postID int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("%s%d:", CommentKeyPrefix, postID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var comment models.Comment
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &comment)
			})
			if err != nil {
				return err
			}
			comments = append(comments, &comment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

// Update updates an existing comment. The post it belongs to cannot change.
func (r *BadgerCommentRepository) Update(comment *models.Comment) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key, err := lookup(txn, comment.ID)
		if err != nil {
			return err
		}
		var existing models.Comment
		if err := getEntity(txn, key, &existing); err != nil {
			return err
		}
		comment.PostID = existing.PostID
		comment.UpdatedAt = time.Now().UTC()
		return putEntity(txn, key, comment)
	})
}

// CountActive counts active comments per post.
func (r *BadgerCommentRepository) CountActive() (map[int]int, error) {
	counts := make(map[int]int)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(CommentKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var comment models.Comment
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &comment)
			})
			if err != nil {
				return err
			}
			if comment.Active {
				counts[comment.PostID]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
