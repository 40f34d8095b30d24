package model

import (
	"time"

	"github.com/pkg/errors"
)

// PostingType discriminates which container foreign key of a posting is
// populated.
type PostingType string

const (
	// PostingTypeTicker marks a posting inside a ticker thread.
	PostingTypeTicker PostingType = "ticker"
	// PostingTypeArticle marks a posting inside an article forum.
	PostingTypeArticle PostingType = "article"
)

/*

Posting is a single comment, either in a ticker thread or in an article
forum. Both variants share one table; Type selects which container foreign
key (ThreadID or ArticleID) is populated, and query-time type recovery
reads the discriminator.

ID: primary key, the site's numeric ID.
UserID/User: the author; nil for anonymous or orphaned postings.
ParentID/Parent: optional self-reference to the posting this one replies
    to. A parent must live in the same container as the posting itself;
    this is checked at assignment time, not deferred to commit. A parent
    given only by ID cannot be checked and is verified by the foreign key
    instead.
Upvotes/Downvotes: vote counters at crawl time.
Title/Message: both optional.

*/
type Posting struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	ObjectID  *string
	Type      PostingType `gorm:"index;not null"`
	UserID    *int64
	User      *User
	ParentID  *int64
	Parent    *Posting `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	ThreadID  *int64
	Thread    *Thread
	ArticleID *int64
	Article   *Article
	Published time.Time
	Upvotes   int
	Downvotes int
	Title     *string
	Message   *string
}

// NewTickerPosting creates a posting inside a ticker thread. User, parent
// and thread each accept a loaded object or a bare ID; the parent may also
// be absent. A parent object belonging to a different thread is rejected
// with a ContainerMismatchError.
func NewTickerPosting(
	id int64,
	objectID *string,
	user Ref[User],
	parent Ref[Posting],
	published time.Time,
	upvotes, downvotes int,
	title, message *string,
	thread Ref[Thread],
) (*Posting, error) {
	p := newPosting(id, objectID, PostingTypeTicker, user, published, upvotes, downvotes, title, message)
	if obj := thread.Obj(); obj != nil {
		p.Thread = obj
		p.ThreadID = &obj.ID
	} else if tid, ok := thread.RawID(); ok {
		p.ThreadID = &tid
	}
	if err := p.setParentRef(parent); err != nil {
		return nil, err
	}
	return p, nil
}

// NewArticlePosting creates a posting inside an article forum. Semantics
// mirror NewTickerPosting with the article as container.
func NewArticlePosting(
	id int64,
	objectID *string,
	user Ref[User],
	parent Ref[Posting],
	published time.Time,
	upvotes, downvotes int,
	title, message *string,
	article Ref[Article],
) (*Posting, error) {
	p := newPosting(id, objectID, PostingTypeArticle, user, published, upvotes, downvotes, title, message)
	if obj := article.Obj(); obj != nil {
		p.Article = obj
		p.ArticleID = &obj.ID
	} else if aid, ok := article.RawID(); ok {
		p.ArticleID = &aid
	}
	if err := p.setParentRef(parent); err != nil {
		return nil, err
	}
	return p, nil
}

func newPosting(
	id int64,
	objectID *string,
	typ PostingType,
	user Ref[User],
	published time.Time,
	upvotes, downvotes int,
	title, message *string,
) *Posting {
	p := &Posting{
		ID:        id,
		ObjectID:  objectID,
		Type:      typ,
		Published: published,
		Upvotes:   upvotes,
		Downvotes: downvotes,
		Title:     title,
		Message:   message,
	}
	if obj := user.Obj(); obj != nil {
		p.User = obj
		p.UserID = &obj.ID
	} else if uid, ok := user.RawID(); ok {
		p.UserID = &uid
	}
	return p
}

// SetParent links the posting below parent. A nil parent detaches the
// posting, which is always legal. A parent of the other variant or of a
// different container is rejected immediately.
func (p *Posting) SetParent(parent *Posting) error {
	if parent == nil {
		p.Parent = nil
		p.ParentID = nil
		return nil
	}
	if parent.Type != p.Type {
		return errors.Errorf("posting %d: parent %d is a %s posting, not %s", p.ID, parent.ID, parent.Type, p.Type)
	}
	if err := p.checkContainer(parent); err != nil {
		return err
	}
	p.Parent = parent
	p.ParentID = &parent.ID
	return nil
}

// SetParentID links the posting below a parent known only by ID. The
// container invariant cannot be checked here and is left to the foreign
// key at commit time.
func (p *Posting) SetParentID(id int64) {
	p.Parent = nil
	p.ParentID = &id
}

// DetachParent makes the posting a top-level posting again.
func (p *Posting) DetachParent() {
	p.Parent = nil
	p.ParentID = nil
}

// SetThread moves a ticker posting into a thread. With a parent attached
// the move is only legal if the parent lives in the same thread; detach
// the parent first to move a reply to the top level of another thread.
func (p *Posting) SetThread(thread Ref[Thread]) error {
	if p.Type != PostingTypeTicker {
		return errors.Errorf("posting %d: cannot assign a thread to a %s posting", p.ID, p.Type)
	}
	prevID, prevObj := p.ThreadID, p.Thread
	if obj := thread.Obj(); obj != nil {
		p.Thread = obj
		p.ThreadID = &obj.ID
	} else if tid, ok := thread.RawID(); ok {
		p.Thread = nil
		p.ThreadID = &tid
	} else {
		p.Thread = nil
		p.ThreadID = nil
	}
	if p.Parent != nil {
		if err := p.checkContainer(p.Parent); err != nil {
			p.ThreadID, p.Thread = prevID, prevObj
			return err
		}
	}
	return nil
}

// SetArticle moves an article posting into a forum, with the same parent
// rules as SetThread.
func (p *Posting) SetArticle(article Ref[Article]) error {
	if p.Type != PostingTypeArticle {
		return errors.Errorf("posting %d: cannot assign an article to a %s posting", p.ID, p.Type)
	}
	prevID, prevObj := p.ArticleID, p.Article
	if obj := article.Obj(); obj != nil {
		p.Article = obj
		p.ArticleID = &obj.ID
	} else if aid, ok := article.RawID(); ok {
		p.Article = nil
		p.ArticleID = &aid
	} else {
		p.Article = nil
		p.ArticleID = nil
	}
	if p.Parent != nil {
		if err := p.checkContainer(p.Parent); err != nil {
			p.ArticleID, p.Article = prevID, prevObj
			return err
		}
	}
	return nil
}

// containerKey returns the ID of the posting's container, consulting the
// loaded object when the foreign key is not set.
func (p *Posting) containerKey() *int64 {
	switch p.Type {
	case PostingTypeTicker:
		if p.ThreadID != nil {
			return p.ThreadID
		}
		if p.Thread != nil {
			return &p.Thread.ID
		}
	case PostingTypeArticle:
		if p.ArticleID != nil {
			return p.ArticleID
		}
		if p.Article != nil {
			return &p.Article.ID
		}
	}
	return nil
}

func (p *Posting) checkContainer(parent *Posting) error {
	mine, theirs := p.containerKey(), parent.containerKey()
	if mine == nil || theirs == nil {
		// One side is unknown; the foreign key catches genuine mismatches.
		return nil
	}
	if *mine != *theirs {
		return &ContainerMismatchError{
			PostingID:       p.ID,
			ParentID:        parent.ID,
			Container:       string(p.Type),
			ContainerID:     *mine,
			ParentContainer: *theirs,
		}
	}
	return nil
}

func (p *Posting) setParentRef(parent Ref[Posting]) error {
	if obj := parent.Obj(); obj != nil {
		return p.SetParent(obj)
	}
	if pid, ok := parent.RawID(); ok {
		p.SetParentID(pid)
	}
	return nil
}
