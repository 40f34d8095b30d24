package model

import "github.com/google/uuid"

/*

Topic is a tag attached to tickers and articles.

ID: primary key, generated. The site only exposes topic names, so this is
    the single entity without an original numeric ID.
Name: unique; the deduplicator guarantees one row (and one in-flight
    instance) per name.

*/
type Topic struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func NewTopic(name string) *Topic {
	return &Topic{ID: uuid.New().String(), Name: name}
}
