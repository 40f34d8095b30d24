package collector_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basislager/dstcrawl/model"
	"github.com/basislager/dstcrawl/store"
)

func articlePage(title, summary string) string {
	return fmt.Sprintf(`<html><head>
<script>window.DERSTANDARD.pageConfig.init({"nodes":["Inland"],"contentPublishingDate":"2023-03-04T08:00:00+01:00","contentTitle":%q,"contentSummary":%q});</script>
</head><body>
<div class="article-body"><p>First paragraph.</p><p>Second <b>bold</b> one.</p></div>
</body></html>`, title, summary)
}

// forumNode renders a PostingInfo node. legacyAuthor "null" leaves the
// posting anonymous; replies is a rendered JSON array.
func forumNode(objectID string, postingID int64, legacyAuthor string, text string, positive int, replies string) string {
	return fmt.Sprintf(`{
		"id":%q,
		"author":{"legacyData":{"legacyCommunityIdentity":%s}},
		"legacy":{"postingId":%d},
		"title":null,
		"text":%q,
		"history":{"created":"2023-03-04T09:00:00+01:00"},
		"reactions":{"aggregated":[{"name":"positive","value":%d}]},
		"replies":%s
	}`, objectID, legacyAuthor, postingID, text, positive, replies)
}

func forumPage(hasNext bool, nextCursor string, nodes ...string) string {
	cursor := "null"
	if nextCursor != "" {
		cursor = fmt.Sprintf("%q", nextCursor)
	}
	edges := ""
	for i, n := range nodes {
		if i > 0 {
			edges += ","
		}
		edges += fmt.Sprintf(`{"node":%s}`, n)
	}
	return fmt.Sprintf(
		`{"data":{"getForumRootPostingsV2":{"pageInfo":{"nextCursor":%s,"hasNextPage":%t},"edges":[%s]}}}`,
		cursor, hasNext, edges,
	)
}

func newArticleSite() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/story/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage("An Article", "Its summary."))
	})
	return mux
}

func TestGetArticleExtractsBody(t *testing.T) {
	s := store.NewTestStore(t)
	api := newTestAPI(t, newArticleSite(), defaultGateway(), s)

	article, err := api.GetArticle(context.Background(), 3000)
	require.NoError(t, err)
	require.NotNil(t, article.Title)
	assert.Equal(t, "An Article", *article.Title)
	require.NotNil(t, article.Content)
	assert.Contains(t, *article.Content, "First paragraph.")
	assert.Contains(t, *article.Content, "bold")
	assert.NotContains(t, *article.Content, "<p>")
	require.Len(t, article.Topics, 1)

	stored, err := s.GetArticle(3000)
	require.NoError(t, err)
	assert.True(t, article.Published.Equal(stored.Published))
}

func TestGetArticlePostingsFlattensReplyTree(t *testing.T) {
	// Root 10 with reply 11 which has reply 12, plus root 13 by a vanished
	// author. Pre-order means 10, 11, 12, 13.
	gw := defaultGateway()
	gw.handle("GetForumInfo", func(map[string]interface{}) string {
		return `{"data":{"getForumByContextUri":{"id":"forum-1"}}}`
	})
	gw.handle("ThreadsByForumQuery", func(map[string]interface{}) string {
		leaf := forumNode("n-12", 12, "8", "deep reply", 0, "[]")
		mid := forumNode("n-11", 11, "7", "reply", 2, "["+leaf+"]")
		root := forumNode("n-10", 10, "7", "root", 5, "["+mid+"]")
		anon := forumNode("n-13", 13, "null", "orphaned", 0, "[]")
		return forumPage(false, "", root, anon)
	})
	s := store.NewTestStore(t)
	api := newTestAPI(t, newArticleSite(), gw, s)

	article, err := api.GetArticle(context.Background(), 3000)
	require.NoError(t, err)
	postings, err := api.GetArticlePostings(context.Background(), article)
	require.NoError(t, err)

	ids := make([]int64, 0, len(postings))
	for _, p := range postings {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{10, 11, 12, 13}, ids)

	for _, p := range postings {
		assert.Equal(t, model.PostingTypeArticle, p.Type)
		require.NotNil(t, p.ArticleID)
		assert.EqualValues(t, 3000, *p.ArticleID)
	}

	// Parent links point at the enclosing node.
	require.NotNil(t, postings[2].ParentID)
	assert.EqualValues(t, 11, *postings[2].ParentID)
	assert.Nil(t, postings[0].ParentID)

	// Reaction names absent from the aggregate default to zero.
	assert.Equal(t, 5, postings[0].Upvotes)
	assert.Equal(t, 0, postings[0].Downvotes)

	// The vanished author leaves the posting anonymous.
	assert.Nil(t, postings[3].UserID)

	stored, err := s.ArticlePostings(3000)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestGetArticlePostingsPaginates(t *testing.T) {
	gw := defaultGateway()
	gw.handle("GetForumInfo", func(map[string]interface{}) string {
		return `{"data":{"getForumByContextUri":{"id":"forum-1"}}}`
	})
	pages := 0
	gw.handle("ThreadsByForumQuery", func(vars map[string]interface{}) string {
		pages++
		switch pages {
		case 1:
			return forumPage(true, "cursor-2", forumNode("n-10", 10, "7", "a", 0, "[]"))
		default:
			return forumPage(false, "", forumNode("n-11", 11, "7", "b", 0, "[]"))
		}
	})
	api := newTestAPI(t, newArticleSite(), gw, nil)

	article, err := api.GetArticle(context.Background(), 3000)
	require.NoError(t, err)
	postings, err := api.GetArticlePostings(context.Background(), article)
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, 2, pages)
}

func TestGetArticlePostingsWithoutForum(t *testing.T) {
	gw := defaultGateway()
	gw.handle("GetForumInfo", func(map[string]interface{}) string {
		return `{"errors":[{"message":"Forum not found."}]}`
	})
	api := newTestAPI(t, newArticleSite(), gw, nil)

	article, err := api.GetArticle(context.Background(), 3000)
	require.NoError(t, err)
	postings, err := api.GetArticlePostings(context.Background(), article)
	require.NoError(t, err)
	assert.Empty(t, postings)
}
