package store

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/basislager/dstcrawl/model"
)

// Merge semantics: an entity whose primary key equals an existing row
// overwrites the row's mutable fields but keeps its identity; no duplicate
// rows, no uniqueness violations. Each Merge* call is one atomic
// transaction per batch, so an interrupted crawl either lands a whole page
// or none of it; previously committed pages stay intact.

// MergeUsers upserts users. A stored deletion timestamp always survives:
// the first observation of a profile as gone wins, later observations
// (possibly carrying a different stamp) never overwrite it.
func (s *Store) MergeUsers(users ...*model.User) error {
	return s.transaction(func(tx *gorm.DB) error {
		for _, u := range users {
			if err := mergeUser(tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

// MergeTicker upserts a ticker and replaces its topic set.
func (s *Store) MergeTicker(t *model.Ticker) error {
	return s.transaction(func(tx *gorm.DB) error {
		return mergeTicker(tx, t)
	})
}

// MergeArticle upserts an article and replaces its topic set.
func (s *Store) MergeArticle(a *model.Article) error {
	return s.transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, a); err != nil {
			return err
		}
		if a.Topics != nil {
			if err := tx.Model(a).Association("Topics").Replace(a.Topics); err != nil {
				return errors.Wrapf(err, "replace topics of article %d", a.ID)
			}
		}
		return nil
	})
}

// MergeThreads upserts one batch of threads, merging loaded authors and
// owning tickers first so their rows exist when the foreign keys land.
func (s *Store) MergeThreads(threads ...*model.Thread) error {
	return s.transaction(func(tx *gorm.DB) error {
		for _, t := range threads {
			if err := mergeThread(tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// MergePostings upserts one page of postings in slice order. Fetch order
// guarantees parents precede their replies, so foreign keys resolve within
// the same transaction; a parent attached as an object is merged first
// regardless.
func (s *Store) MergePostings(postings ...*model.Posting) error {
	return s.transaction(func(tx *gorm.DB) error {
		for _, p := range postings {
			if err := mergePosting(tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// MergeRelationships records the follow graph of a user. Every edge is
// stored exactly once as a directed (user, followee) row; re-merging the
// same graph inserts nothing new.
func (s *Store) MergeRelationships(user *model.User, followees, followers []*model.User) error {
	return s.transaction(func(tx *gorm.DB) error {
		if err := mergeUser(tx, user); err != nil {
			return err
		}
		edges := make([]model.UserFollowing, 0, len(followees)+len(followers))
		for _, f := range followees {
			if err := mergeUser(tx, f); err != nil {
				return err
			}
			edges = append(edges, model.UserFollowing{UserID: user.ID, FolloweeID: f.ID})
		}
		for _, f := range followers {
			if err := mergeUser(tx, f); err != nil {
				return err
			}
			edges = append(edges, model.UserFollowing{UserID: f.ID, FolloweeID: user.ID})
		}
		if len(edges) == 0 {
			return nil
		}
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edges).Error
		return errors.Wrapf(err, "merge follow edges of user %d", user.ID)
	})
}

// FindOrCreateTopic resolves a topic name to its canonical row. Uniqueness
// is on the name; concurrent callers converge on the same row.
func (s *Store) FindOrCreateTopic(name string) (*model.Topic, error) {
	topic := &model.Topic{}
	err := s.transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ?", name).First(topic).Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		topic = model.NewTopic(name)
		return tx.Create(topic).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "find or create topic %q", name)
	}
	return topic, nil
}

// DeleteTicker removes a ticker; threads and their postings cascade.
func (s *Store) DeleteTicker(id int64) error {
	return s.transaction(func(tx *gorm.DB) error {
		return tx.Delete(&model.Ticker{}, id).Error
	})
}

// DeleteArticle removes an article; its postings cascade.
func (s *Store) DeleteArticle(id int64) error {
	return s.transaction(func(tx *gorm.DB) error {
		return tx.Delete(&model.Article{}, id).Error
	})
}

// DeleteUser removes a user; authored threads and postings cascade.
func (s *Store) DeleteUser(id int64) error {
	return s.transaction(func(tx *gorm.DB) error {
		return tx.Delete(&model.User{}, id).Error
	})
}

// upsert inserts or updates one row by primary key, leaving associations
// untouched (scalar foreign keys are part of the row and do land).
func upsert(tx *gorm.DB, entity interface{}) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).
		Omit(clause.Associations).
		Create(entity).Error
}

func mergeUser(tx *gorm.DB, u *model.User) error {
	var stored model.User
	err := tx.Select("deleted").First(&stored, "id = ?", u.ID).Error
	switch {
	case err == nil:
		if stored.Deleted != nil {
			u.Deleted = stored.Deleted
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First sighting of this user.
	default:
		return errors.Wrapf(err, "look up user %d", u.ID)
	}
	return errors.Wrapf(upsert(tx, u), "merge user %d", u.ID)
}

func mergeTicker(tx *gorm.DB, t *model.Ticker) error {
	if err := upsert(tx, t); err != nil {
		return errors.Wrapf(err, "merge ticker %d", t.ID)
	}
	if t.Topics != nil {
		if err := tx.Model(t).Association("Topics").Replace(t.Topics); err != nil {
			return errors.Wrapf(err, "replace topics of ticker %d", t.ID)
		}
	}
	return nil
}

func mergeThread(tx *gorm.DB, t *model.Thread) error {
	if t.User != nil {
		if err := mergeUser(tx, t.User); err != nil {
			return err
		}
	}
	if t.Ticker != nil {
		if err := mergeTicker(tx, t.Ticker); err != nil {
			return err
		}
	}
	return errors.Wrapf(upsert(tx, t), "merge thread %d", t.ID)
}

func mergePosting(tx *gorm.DB, p *model.Posting) error {
	if p.User != nil {
		if err := mergeUser(tx, p.User); err != nil {
			return err
		}
	}
	if p.Parent != nil {
		if err := mergePosting(tx, p.Parent); err != nil {
			return err
		}
	}
	return errors.Wrapf(upsert(tx, p), "merge posting %d", p.ID)
}
