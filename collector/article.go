package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"

	"github.com/basislager/dstcrawl/model"
	"github.com/basislager/dstcrawl/utils"
)

var articleTextPolicy = bluemonday.StrictPolicy()

// GetArticle fetches a story page and extracts publication metadata,
// topics and the article body reduced to plain text. Title and summary are
// optional page-config fields and stay absent when the page omits them.
func (a *API) GetArticle(ctx context.Context, articleID int64) (*model.Article, error) {
	page, err := a.site.Page(ctx, fmt.Sprintf("/story/%d", articleID))
	if err != nil {
		return nil, err
	}

	config := extractPageConfig(page)
	if config.ContentPublishingDate == "" {
		return nil, errors.Wrapf(ErrMissingField, "contentPublishingDate of article %d", articleID)
	}
	published, err := dateparse.ParseAny(config.ContentPublishingDate)
	if err != nil {
		return nil, errors.Wrapf(err, "parse publish date of article %d", articleID)
	}

	topics, err := a.topicsFor(config.Nodes)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, errors.Wrapf(err, "parse article page %d", articleID)
	}
	var content *string
	if body := doc.Find("div.article-body"); body.Length() > 0 {
		if html, err := body.Html(); err == nil {
			content = utils.StrPtr(strings.TrimSpace(articleTextPolicy.Sanitize(html)))
		}
	}

	article := model.NewArticle(
		articleID,
		nil,
		published.UTC().Truncate(time.Second),
		utils.StrPtr(strings.TrimSpace(config.ContentTitle)),
		utils.StrPtr(strings.TrimSpace(config.ContentSummary)),
		content,
		topics,
	)
	if a.store != nil {
		if err := a.store.MergeArticle(article); err != nil {
			return nil, err
		}
	}
	return article, nil
}
