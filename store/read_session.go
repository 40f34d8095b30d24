package store

import (
	"fmt"
	"time"

	"github.com/basislager/dstcrawl/model"
)

// ReadOnlyError rejects a mutating operation attempted on a read-only
// session, naming the disallowed operation.
type ReadOnlyError struct {
	Op string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("read-only session: %s is not allowed", e.Op)
}

// ReadSession is a capability-scoped handle exposing only non-mutating
// operations. External collaborators that must not write get this instead
// of the Store; its mutating methods exist only to fail loudly.
type ReadSession struct {
	s *Store
}

// ReadSession returns a read-only view of the store.
func (s *Store) ReadSession() *ReadSession {
	return &ReadSession{s: s}
}

func (r *ReadSession) GetUser(id int64) (*model.User, error)       { return r.s.GetUser(id) }
func (r *ReadSession) GetTicker(id int64) (*model.Ticker, error)   { return r.s.GetTicker(id) }
func (r *ReadSession) GetThread(id int64) (*model.Thread, error)   { return r.s.GetThread(id) }
func (r *ReadSession) GetArticle(id int64) (*model.Article, error) { return r.s.GetArticle(id) }
func (r *ReadSession) GetPosting(id int64) (*model.Posting, error) { return r.s.GetPosting(id) }
func (r *ReadSession) UserDeletedAt(id int64) (*time.Time, error)  { return r.s.UserDeletedAt(id) }

func (r *ReadSession) TickerThreads(tickerID int64) ([]*model.Thread, error) {
	return r.s.TickerThreads(tickerID)
}

func (r *ReadSession) ThreadPostings(threadID int64) ([]*model.Posting, error) {
	return r.s.ThreadPostings(threadID)
}

func (r *ReadSession) ArticlePostings(articleID int64) ([]*model.Posting, error) {
	return r.s.ArticlePostings(articleID)
}

func (r *ReadSession) Relationships(userID int64) ([]*model.User, []*model.User, error) {
	return r.s.Relationships(userID)
}

// Merge rejects any upsert attempt on a read-only session.
func (r *ReadSession) Merge(interface{}) error {
	return &ReadOnlyError{Op: "merge"}
}

// Delete rejects any delete attempt on a read-only session.
func (r *ReadSession) Delete(interface{}) error {
	return &ReadOnlyError{Op: "delete"}
}
