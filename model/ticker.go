package model

import "time"

/*

Ticker is a live-updating blog page composed of ordered threads.

ID: primary key, the site's numeric ID.
ObjectID: opaque ID of the newer backend, if known.
Title: page title.
Published: publication timestamp from the embedded page metadata.
Topics: tags from the page config, "many-to-many" relation.
Threads: entries of this ticker, "has-many" with cascade delete; deleting a
    ticker deletes its threads and, transitively, their postings.

*/
type Ticker struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	ObjectID  *string
	Title     string
	Published time.Time
	Topics    []*Topic  `gorm:"many2many:ticker_topics"`
	Threads   []*Thread `gorm:"foreignKey:TickerID;constraint:OnDelete:CASCADE"`
}

func NewTicker(id int64, objectID *string, title string, published time.Time, topics []*Topic) *Ticker {
	return &Ticker{
		ID:        id,
		ObjectID:  objectID,
		Title:     title,
		Published: published,
		Topics:    topics,
	}
}
