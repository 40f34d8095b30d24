package store

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/basislager/dstcrawl/model"
)

// ErrNotFound is returned by lookups for rows that do not exist.
var ErrNotFound = errors.New("entry not found")

func first[T any](db *gorm.DB, id interface{}, preloads ...string) (*T, error) {
	var entity T
	q := db
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// GetUser returns the user with the given legacy ID.
func (s *Store) GetUser(id int64) (*model.User, error) {
	return first[model.User](s.db, id)
}

// UserDeletedAt returns the stored deletion timestamp of a user, or nil if
// the user is unknown or not deleted. The resolver uses this to keep the
// deletion stamp stable across crawls.
func (s *Store) UserDeletedAt(id int64) (*time.Time, error) {
	var u model.User
	err := s.db.Select("deleted").First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "look up deletion of user %d", id)
	}
	return u.Deleted, nil
}

// GetTicker returns a ticker with its topics.
func (s *Store) GetTicker(id int64) (*model.Ticker, error) {
	return first[model.Ticker](s.db, id, "Topics")
}

// GetThread returns a thread by ID.
func (s *Store) GetThread(id int64) (*model.Thread, error) {
	return first[model.Thread](s.db, id)
}

// GetArticle returns an article with its topics.
func (s *Store) GetArticle(id int64) (*model.Article, error) {
	return first[model.Article](s.db, id, "Topics")
}

// GetPosting returns a posting by ID; the Type discriminator tells the
// caller which variant it holds.
func (s *Store) GetPosting(id int64) (*model.Posting, error) {
	return first[model.Posting](s.db, id)
}

// TickerThreads returns the threads of a ticker in publication order.
func (s *Store) TickerThreads(tickerID int64) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := s.db.Where("ticker_id = ?", tickerID).Order("published, id").Find(&threads).Error
	return threads, err
}

// ThreadPostings returns the postings of a thread in publication order.
func (s *Store) ThreadPostings(threadID int64) ([]*model.Posting, error) {
	var postings []*model.Posting
	err := s.db.Where("thread_id = ?", threadID).Order("published, id").Find(&postings).Error
	return postings, err
}

// ArticlePostings returns the forum postings of an article in publication
// order.
func (s *Store) ArticlePostings(articleID int64) ([]*model.Posting, error) {
	var postings []*model.Posting
	err := s.db.Where("article_id = ?", articleID).Order("published, id").Find(&postings).Error
	return postings, err
}

// Relationships returns the followees and followers of a user as recorded
// in the directed edge table.
func (s *Store) Relationships(userID int64) (followees, followers []*model.User, err error) {
	u, err := first[model.User](s.db, userID, "Followees", "Followers")
	if err != nil {
		return nil, nil, err
	}
	return u.Followees, u.Followers, nil
}

// CountPostings reports the number of posting rows, optionally filtered by
// variant.
func (s *Store) CountPostings(typ model.PostingType) (int64, error) {
	var n int64
	q := s.db.Model(&model.Posting{})
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	err := q.Count(&n).Error
	return n, err
}
