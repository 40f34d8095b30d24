package collector_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basislager/dstcrawl/model"
	"github.com/basislager/dstcrawl/store"
)

// tickerPage renders a minimal livebericht page with embedded metadata.
func tickerPage(title string, topics string) string {
	return fmt.Sprintf(`<html><head>
<meta name="title" content=%q>
<script>window.DERSTANDARD.pageConfig.init({"nodes":[%s]});</script>
<script id="summary-slide" type="text/html">
<meta itemprop="datePublished" content="2023-01-02T03:04:05+01:00">
</script>
</head><body></body></html>`, title, topics)
}

func postingRecord(id int64, parent string, author int64) string {
	return fmt.Sprintf(
		`{"pid":%d,"ppid":%s,"cid":%d,"cd":"2023-01-02T10:0%d:00+01:00","hl":"","tx":"posting %d","vp":1,"vn":0}`,
		id, parent, author, id%10, id,
	)
}

// newTickerSite scripts the legacy backend: one ticker page, one thread
// and the exact three-page posting sequence with an overlapping ID at the
// page boundary.
func newTickerSite(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/jetzt/livebericht/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tickerPage("Test Ticker", `"Politik","Klima"`))
	})
	mux.HandleFunc("/jetzt/api/redcontent", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w,
			`{"rcs":[{"id":500,"ctd":"2023-01-02T09:00:00+01:00","hl":"thread","cm":"msg","cid":7,"vp":2,"vn":1}]}`,
		)
	})
	mux.HandleFunc("/jetzt/api/postings", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("skipToPostingId") {
		case "":
			fmt.Fprintf(w, `{"p":[%s,%s,%s]}`,
				postingRecord(1, "null", 7),
				postingRecord(2, "1", 7),
				postingRecord(3, "null", 8),
			)
		case "3":
			// The cursor overlaps: posting 3 appears again.
			fmt.Fprintf(w, `{"p":[%s,%s]}`,
				postingRecord(3, "null", 8),
				postingRecord(4, "3", 7),
			)
		default:
			fmt.Fprint(w, `{"p":[]}`)
		}
	})
	return mux
}

func TestGetTickerExtractsPageMetadata(t *testing.T) {
	s := store.NewTestStore(t)
	api := newTestAPI(t, newTickerSite(t), defaultGateway(), s)

	ticker, err := api.GetTicker(context.Background(), 42)
	require.NoError(t, err)
	assert.EqualValues(t, 42, ticker.ID)
	assert.Equal(t, "Test Ticker", ticker.Title)
	assert.True(t, ticker.Published.Equal(time.Date(2023, 1, 2, 2, 4, 5, 0, time.UTC)))
	require.Len(t, ticker.Topics, 2)

	stored, err := s.GetTicker(42)
	require.NoError(t, err)
	assert.Len(t, stored.Topics, 2)
}

func TestTopicUnionAcrossTickers(t *testing.T) {
	s := store.NewTestStore(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/jetzt/livebericht/1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tickerPage("one", `"Politik","Klima"`))
	})
	mux.HandleFunc("/jetzt/livebericht/2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tickerPage("two", `"Klima","Wirtschaft"`))
	})
	api := newTestAPI(t, mux, defaultGateway(), s)

	_, err := api.GetTicker(context.Background(), 1)
	require.NoError(t, err)
	_, err = api.GetTicker(context.Background(), 2)
	require.NoError(t, err)

	// Overlapping names converge on one row: union, not sum.
	var count int64
	require.NoError(t, s.DB().Model(&model.Topic{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestGetTickerThreads(t *testing.T) {
	s := store.NewTestStore(t)
	api := newTestAPI(t, newTickerSite(t), defaultGateway(), s)

	ticker, err := api.GetTicker(context.Background(), 42)
	require.NoError(t, err)
	threads, err := api.GetTickerThreads(context.Background(), ticker)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.EqualValues(t, 500, threads[0].ID)
	require.NotNil(t, threads[0].UserID)
	assert.EqualValues(t, 7, *threads[0].UserID)
	assert.Equal(t, 2, threads[0].Upvotes)

	stored, err := s.GetThread(500)
	require.NoError(t, err)
	assert.EqualValues(t, 42, stored.TickerID)
}

func TestGetThreadPostingsPaginatesAndDeduplicates(t *testing.T) {
	s := store.NewTestStore(t)
	api := newTestAPI(t, newTickerSite(t), defaultGateway(), s)

	ticker, err := api.GetTicker(context.Background(), 42)
	require.NoError(t, err)
	threads, err := api.GetTickerThreads(context.Background(), ticker)
	require.NoError(t, err)
	postings, err := api.GetThreadPostings(context.Background(), threads[0])
	require.NoError(t, err)

	// Pages [1 2 3], [3 4], []: the overlap collapses, order preserved.
	ids := make([]int64, 0, len(postings))
	for _, p := range postings {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)

	stored, err := s.ThreadPostings(500)
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	// Parent linkage arrives as bare IDs.
	p4, err := s.GetPosting(4)
	require.NoError(t, err)
	require.NotNil(t, p4.ParentID)
	assert.EqualValues(t, 3, *p4.ParentID)
	assert.Equal(t, model.PostingTypeTicker, p4.Type)
}

func TestThreadPostingsWithoutStore(t *testing.T) {
	api := newTestAPI(t, newTickerSite(t), defaultGateway(), nil)

	ticker, err := api.GetTicker(context.Background(), 42)
	require.NoError(t, err)
	threads, err := api.GetTickerThreads(context.Background(), ticker)
	require.NoError(t, err)
	postings, err := api.GetThreadPostings(context.Background(), threads[0])
	require.NoError(t, err)
	assert.Len(t, postings, 4)
}
