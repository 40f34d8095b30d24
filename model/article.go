package model

import "time"

/*

Article is a regular story page with an attached forum.

ID: primary key, the site's numeric ID.
Published: contentPublishingDate from the embedded page config.
Title/Summary/Content: extracted page text, each optional.
Topics: tags from the page config, "many-to-many" relation.
Postings: forum postings below the article, "has-many" with cascade delete.

*/
type Article struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	ObjectID  *string
	Published time.Time
	Title     *string
	Summary   *string
	Content   *string
	Topics    []*Topic   `gorm:"many2many:article_topics"`
	Postings  []*Posting `gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
}

func NewArticle(
	id int64,
	objectID *string,
	published time.Time,
	title, summary, content *string,
	topics []*Topic,
) *Article {
	return &Article{
		ID:        id,
		ObjectID:  objectID,
		Published: published,
		Title:     title,
		Summary:   summary,
		Content:   content,
		Topics:    topics,
	}
}
