package model

import "time"

/*

Thread is one top-level entry in a ticker, itself the root for postings.

ID: primary key, the site's numeric ID.
TickerID/Ticker: the owning ticker, "belongs-to" relation. Constructed from
    a Ref, so a bare ID is accepted without loading the row.
UserID/User: the author. Optional because the author may be unresolvable.
Upvotes/Downvotes: vote counters at crawl time.
Title/Message: both optional; pure media threads carry neither.
Postings: replies in this thread, "has-many" with cascade delete.

*/
type Thread struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	ObjectID  *string
	Published time.Time
	TickerID  int64
	Ticker    *Ticker
	UserID    *int64
	User      *User
	Upvotes   int
	Downvotes int
	Title     *string
	Message   *string
	Postings  []*Posting `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"`
}

// NewThread creates a thread. Ticker and user accept either a loaded object
// or a bare ID; a bare ID must exist in storage by commit time.
func NewThread(
	id int64,
	objectID *string,
	published time.Time,
	ticker Ref[Ticker],
	user Ref[User],
	upvotes, downvotes int,
	title, message *string,
) *Thread {
	t := &Thread{
		ID:        id,
		ObjectID:  objectID,
		Published: published,
		Upvotes:   upvotes,
		Downvotes: downvotes,
		Title:     title,
		Message:   message,
	}
	if obj := ticker.Obj(); obj != nil {
		t.Ticker = obj
		t.TickerID = obj.ID
	} else if id, ok := ticker.RawID(); ok {
		t.TickerID = id
	}
	if obj := user.Obj(); obj != nil {
		t.User = obj
		t.UserID = &obj.ID
	} else if id, ok := user.RawID(); ok {
		t.UserID = &id
	}
	return t
}
