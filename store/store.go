// Package store is the canonical place for everything that touches the
// database: connection setup, schema migration, the merge (upsert)
// orchestrator and read-only query sessions. It must not contain crawl
// logic; the collector hands finished entity batches down to it.
package store

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/basislager/dstcrawl/model"
)

// Store wraps a database handle together with the write discipline the
// engine requires. Merge transactions funnel through one mutex when the
// engine is single-writer (SQLite); concurrent fetches may still overlap
// with a prior page's commit on engines that tolerate it.
type Store struct {
	db        *gorm.DB
	mu        sync.Mutex
	serialize bool
}

// Open connects to the database specified by env (DB_HOST, DB_USER,
// DB_PASS, DB_NAME, DB_PORT) and migrates the schema.
func Open() (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASS"),
		os.Getenv("DB_NAME"), os.Getenv("DB_PORT"),
	)
	return OpenPostgres(dsn)
}

// OpenPostgres connects to a Postgres database and migrates the schema.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to postgres")
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenSQLite opens (or creates) a SQLite database and migrates the schema.
// SQLite disallows concurrent writer sessions, so all merge transactions
// are serialized. Foreign-key enforcement defaults to off and is a
// per-connection setting, so it goes into the DSN where it reaches every
// connection the pool opens.
func OpenSQLite(path string) (*Store, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on"
	} else {
		dsn += "?_foreign_keys=on"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One connection keeps the single-writer rule honest.
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db, serialize: true}, nil
}

// Migrate sets up join tables and migrates every entity table. The follow
// graph uses an explicit join model so that one directed edge row serves
// both the followee and the follower side.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.User{}, "Followees", &model.UserFollowing{}); err != nil {
		return errors.Wrap(err, "set up user_followings join table")
	}
	if err := db.SetupJoinTable(&model.User{}, "Followers", &model.UserFollowing{}); err != nil {
		return errors.Wrap(err, "set up user_followings reverse mapping")
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Topic{},
		&model.Ticker{},
		&model.Thread{},
		&model.Article{},
		&model.Posting{},
	); err != nil {
		return errors.Wrap(err, "migrate schema")
	}
	return nil
}

// DB exposes the underlying handle for read paths that need raw queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// transaction runs fn atomically, honoring the engine's writer discipline.
func (s *Store) transaction(fn func(tx *gorm.DB) error) error {
	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return s.db.Transaction(fn)
}
