package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/pkg/errors"

	"github.com/basislager/dstcrawl/model"
	"github.com/basislager/dstcrawl/utils"
	Logger "github.com/basislager/dstcrawl/utils/log"
)

// threadPageSize makes the redcontent endpoint return every thread of a
// ticker in one page.
const threadPageSize = 1 << 16

// GetTicker fetches a ticker page and extracts title, publication
// timestamp and topics from the embedded page metadata.
func (a *API) GetTicker(ctx context.Context, tickerID int64) (*model.Ticker, error) {
	page, err := a.site.Page(ctx, fmt.Sprintf("/jetzt/livebericht/%d/", tickerID))
	if err != nil {
		return nil, err
	}

	topics, err := a.topicsFor(extractPageConfig(page).Nodes)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, errors.Wrapf(err, "parse ticker page %d", tickerID)
	}
	title, ok := doc.Find(`meta[name="title"]`).Attr("content")
	if !ok {
		return nil, errors.Wrapf(ErrMissingField, "title of ticker %d", tickerID)
	}

	// The canonical publish date sits in a secondary markup block inside
	// the summary-slide script tag.
	script := doc.Find("script#summary-slide").Text()
	scriptDoc, err := goquery.NewDocumentFromReader(strings.NewReader(script))
	if err != nil {
		return nil, errors.Wrapf(err, "parse summary slide of ticker %d", tickerID)
	}
	dateRaw, ok := scriptDoc.Find(`meta[itemprop="datePublished"]`).Attr("content")
	if !ok {
		return nil, errors.Wrapf(ErrMissingField, "datePublished of ticker %d", tickerID)
	}
	published, err := dateparse.ParseAny(dateRaw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse publish date of ticker %d", tickerID)
	}

	ticker := model.NewTicker(tickerID, nil, title, published.UTC(), topics)
	if a.store != nil {
		if err := a.store.MergeTicker(ticker); err != nil {
			return nil, err
		}
	}
	return ticker, nil
}

type tickerThreadRecord struct {
	ID        int64  `json:"id"`
	Published string `json:"ctd"`
	Headline  string `json:"hl"`
	Message   string `json:"cm"`
	AuthorID  int64  `json:"cid"`
	Upvotes   int    `json:"vp"`
	Downvotes int    `json:"vn"`
}

type redcontentResponse struct {
	Threads []tickerThreadRecord `json:"rcs"`
}

// GetTickerThreads fetches all threads of a ticker. The legacy backend
// returns them in one page given a large enough page size. Authors are
// resolved through GetUser; the batch is merged before it is returned.
func (a *API) GetTickerThreads(ctx context.Context, ticker *model.Ticker) ([]*model.Thread, error) {
	var data redcontentResponse
	path := fmt.Sprintf("/jetzt/api/redcontent?id=%d&ps=%d", ticker.ID, threadPageSize)
	if err := a.site.GetJSON(ctx, path, &data); err != nil {
		return nil, err
	}

	threads := make([]*model.Thread, 0, len(data.Threads))
	for _, record := range data.Threads {
		published, err := dateparse.ParseAny(record.Published)
		if err != nil {
			return nil, errors.Wrapf(err, "parse publish date of thread %d", record.ID)
		}
		author, err := a.GetUser(ctx, record.AuthorID)
		if err != nil {
			return nil, err
		}
		threads = append(threads, model.NewThread(
			record.ID,
			nil,
			published.UTC(),
			model.ByObj(ticker),
			model.ByObj(author),
			record.Upvotes,
			record.Downvotes,
			utils.StrPtr(record.Headline),
			utils.StrPtr(record.Message),
		))
	}

	if a.store != nil {
		if err := a.store.MergeThreads(threads...); err != nil {
			return nil, err
		}
	}
	Logger.Log.Infof("ticker %d: fetched %d threads", ticker.ID, len(threads))
	return threads, nil
}

type tickerPostingRecord struct {
	ID        int64  `json:"pid"`
	ParentID  *int64 `json:"ppid"`
	AuthorID  int64  `json:"cid"`
	Published string `json:"cd"`
	Headline  string `json:"hl"`
	Message   string `json:"tx"`
	Upvotes   int    `json:"vp"`
	Downvotes int    `json:"vn"`
}

type postingsResponse struct {
	Postings []tickerPostingRecord `json:"p"`
}

// getThreadPostingsPage fetches one page of postings, keyed by a
// skip-to-posting-ID cursor; a nil cursor requests the first page.
func (a *API) getThreadPostingsPage(ctx context.Context, thread *model.Thread, skipTo *int64) ([]tickerPostingRecord, error) {
	path := fmt.Sprintf("/jetzt/api/postings?objectId=%d&redContentId=%d", thread.TickerID, thread.ID)
	if skipTo != nil {
		path += fmt.Sprintf("&skipToPostingId=%d", *skipTo)
	}
	var data postingsResponse
	if err := a.site.GetJSON(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.Postings, nil
}

// GetThreadPostings fetches every posting of a thread. Pages are keyed by
// the last posting ID of the previous page and can overlap at the
// boundary, so results are deduplicated by ID: the last copy wins, the
// first occurrence fixes the position. Each page is merged into storage as
// it completes, which bounds memory and lets a crawl be interrupted
// between pages.
func (a *API) GetThreadPostings(ctx context.Context, thread *model.Thread) ([]*model.Posting, error) {
	indexByID := make(map[int64]int)
	var ordered []*model.Posting

	var cursor *int64
	for {
		records, err := a.getThreadPostingsPage(ctx, thread, cursor)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}

		page := make([]*model.Posting, 0, len(records))
		for _, record := range records {
			posting, err := a.buildTickerPosting(ctx, thread, record)
			if err != nil {
				return nil, err
			}
			page = append(page, posting)
		}
		if a.store != nil {
			if err := a.store.MergePostings(page...); err != nil {
				return nil, err
			}
		}
		for _, posting := range page {
			if at, ok := indexByID[posting.ID]; ok {
				ordered[at] = posting
				continue
			}
			indexByID[posting.ID] = len(ordered)
			ordered = append(ordered, posting)
		}

		last := records[len(records)-1].ID
		cursor = &last
	}

	Logger.Log.Infof("thread %d: fetched %d postings", thread.ID, len(ordered))
	return ordered, nil
}

func (a *API) buildTickerPosting(ctx context.Context, thread *model.Thread, record tickerPostingRecord) (*model.Posting, error) {
	published, err := dateparse.ParseAny(record.Published)
	if err != nil {
		return nil, errors.Wrapf(err, "parse publish date of posting %d", record.ID)
	}
	author, err := a.GetUser(ctx, record.AuthorID)
	if err != nil {
		return nil, err
	}

	parent := model.None[model.Posting]()
	if record.ParentID != nil {
		parent = model.ByID[model.Posting](*record.ParentID)
	}
	return model.NewTickerPosting(
		record.ID,
		nil,
		model.ByObj(author),
		parent,
		published.UTC(),
		record.Upvotes,
		record.Downvotes,
		utils.StrPtr(record.Headline),
		utils.StrPtr(record.Message),
		model.ByObj(thread),
	)
}
