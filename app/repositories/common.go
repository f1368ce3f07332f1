package repositories

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	// Key prefixes for different entity types
	PostKeyPrefix    = "post:"
	CommentKeyPrefix = "comment:"
	TagKeyPrefix     = "tag:"

	// Secondary indexes
	CommentIndexPrefix = "commentidx:"
	TagSlugPrefix      = "tagslug:"

	// Sequence keys for auto-incrementing IDs
	PostSeqKey    = "seq:post"
	CommentSeqKey = "seq:comment"
	TagSeqKey     = "seq:tag"
)

// getNextID gets the next available ID for a given sequence key
func getNextID(txn *badger.Txn, seqKey string) (int, error) {
	var id uint64
	item, err := txn.Get([]byte(seqKey))
	switch {
	case err == badger.ErrKeyNotFound:
		id = 1
	case err != nil:
		return 0, err
	default:
		err = item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence %q", seqKey)
			}
			id = binary.BigEndian.Uint64(val) + 1
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	if err := txn.Set([]byte(seqKey), buf); err != nil {
		return 0, err
	}
	return int(id), nil
}

func postKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", PostKeyPrefix, id))
}

func commentKey(postID, id int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", CommentKeyPrefix, postID, id))
}

func commentIndexKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", CommentIndexPrefix, id))
}

func tagKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", TagKeyPrefix, id))
}

func tagSlugKey(slug string) []byte {
	return []byte(TagSlugPrefix + slug)
}

// getEntity loads and decodes the value stored under key.
func getEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

// putEntity encodes entity and stores it under key.
func putEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	data, err := marshalEntity(entity)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}
