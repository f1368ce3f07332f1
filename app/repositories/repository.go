package repositories

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/badger/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateSlug = errors.New("slug already used for this publish date")
)

// Store bundles the repositories of one backing database.
type Store struct {
	Posts    PostRepository
	Comments CommentRepository
	Tags     TagRepository

	close func() error
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// BadgerOptions are the options the blog opens Badger with. An empty path
// gives an in-memory database.
func BadgerOptions(path string) badger.Options {
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{}).
		WithSyncWrites(false).
		WithNumVersionsToKeep(1)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	return opts
}

// OpenBadger opens (or creates) a Badger database at path.
func OpenBadger(path string) (*Store, error) {
	db, err := badger.Open(BadgerOptions(path))
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	s := NewBadgerStore(db)
	s.close = db.Close
	return s, nil
}

// NewBadgerStore wraps an open Badger database. The caller keeps ownership of db.
func NewBadgerStore(db *badger.DB) *Store {
	return &Store{
		Posts:    NewBadgerPostRepository(db),
		Comments: NewBadgerCommentRepository(db),
		Tags:     NewBadgerTagRepository(db),
	}
}

// OpenPostgres connects to Postgres, retrying with backoff while the server
// comes up, and optionally migrates the schema.
func OpenPostgres(dsn string, autoMigrate bool) (*Store, error) {
	var (
		db   *gorm.DB
		last error
	)
	for i := 0; i < 6; i++ {
		db, last = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if last == nil {
			break
		}
		log.Printf("postgres not ready (attempt %d): %v", i+1, last)
		time.Sleep(time.Duration(1<<i) * time.Second)
	}
	if last != nil {
		return nil, fmt.Errorf("open postgres: %w", last)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if autoMigrate {
		if err := Migrate(db); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	s := NewGormStore(db)
	s.close = sqlDB.Close
	return s, nil
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Posts:    NewGormPostRepository(db),
		Comments: NewGormCommentRepository(db),
		Tags:     NewGormTagRepository(db),
	}
}

// badgerLogger forwards Badger's warnings and errors to the standard logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Printf("badger: ERROR: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Printf("badger: WARN: "+format, args...)
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
