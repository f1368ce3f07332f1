package repositories

import (
	"sort"
	"strconv"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerTagRepository implements TagRepository using BadgerDB
type BadgerTagRepository struct {
	db *badger.DB
}

// NewBadgerTagRepository creates a new BadgerTagRepository
func NewBadgerTagRepository(db *badger.DB) *BadgerTagRepository {
	return &BadgerTagRepository{db: db}
}

// FirstOrCreate returns the tag with name's slug, creating it if missing.
func (r *BadgerTagRepository) FirstOrCreate(name string) (*models.Tag, error) {
	tag := models.NewTag(name)
	if err := tag.Validate(); err != nil {
		return nil, err
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		id, err := tagIDBySlug(txn, tag.Slug)
		if err == nil {
			return getEntity(txn, tagKey(id), tag)
		}
		if err != ErrNotFound {
			return err
		}

		if tag.ID, err = getNextID(txn, TagSeqKey); err != nil {
			return err
		}
		if err := putEntity(txn, tagKey(tag.ID), tag); err != nil {
			return err
		}
		return txn.Set(tagSlugKey(tag.Slug), []byte(strconv.Itoa(tag.ID)))
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func tagIDBySlug(txn *badger.Txn, slug string) (int, error) {
	item, err := txn.Get(tagSlugKey(slug))
	if err == badger.ErrKeyNotFound {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var id int
	err = item.Value(func(val []byte) error {
		id, err = strconv.Atoi(string(val))
		return err
	})
	return id, err
}

// GetBySlug retrieves a tag through the slug index.
func (r *BadgerTagRepository) GetBySlug(slug string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := tagIDBySlug(txn, slug)
		if err != nil {
			return err
		}
		return getEntity(txn, tagKey(id), &tag)
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// List returns all tags ordered by name.
func (r *BadgerTagRepository) List() ([]*models.Tag, error) {
	var tags []*models.Tag
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(TagKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var tag models.Tag
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &tag)
			})
			if err != nil {
				return err
			}
			tags = append(tags, &tag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}
