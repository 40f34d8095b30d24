package clients_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basislager/dstcrawl/collector/clients"
)

func TestSiteClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jetzt/api/redcontent", r.URL.Path)
		fmt.Fprint(w, `{"rcs":[{"id":1}]}`)
	}))
	defer srv.Close()

	var data struct {
		Threads []struct {
			ID int64 `json:"id"`
		} `json:"rcs"`
	}
	client := clients.NewSiteClientWithBase(srv.URL)
	require.NoError(t, client.GetJSON(context.Background(), "/jetzt/api/redcontent", &data))
	require.Len(t, data.Threads, 1)
	assert.EqualValues(t, 1, data.Threads[0].ID)
}

func TestSiteClientSurfacesClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := clients.NewSiteClientWithBase(srv.URL)
	_, err := client.Page(context.Background(), "/inland/2099/1/1")
	var statusErr *clients.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	// A 4xx is a definitive answer and is not retried.
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestSiteClientRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	client := clients.NewSiteClientWithBase(srv.URL)
	page, err := client.Page(context.Background(), "/story/1")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", page)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestGraphQLClientDecodesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"getForumByContextUri":{"id":"forum-9"}}}`)
	}))
	defer srv.Close()

	var data struct {
		GetForumByContextUri struct {
			ID string `json:"id"`
		} `json:"getForumByContextUri"`
	}
	client := clients.NewGraphQLClientWithEndpoint(srv.URL)
	err := client.Execute(context.Background(), clients.QueryForumInfo, map[string]interface{}{
		"contextUri": "https://example.invalid/story/1",
	}, &data)
	require.NoError(t, err)
	assert.Equal(t, "forum-9", data.GetForumByContextUri.ID)
}

func TestGraphQLClientSurfacesEnvelopeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"Forum not found."},{"message":"secondary"}]}`)
	}))
	defer srv.Close()

	client := clients.NewGraphQLClientWithEndpoint(srv.URL)
	err := client.Execute(context.Background(), clients.QueryForumInfo, nil, nil)
	var gqlErr *clients.GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, "Forum not found.", gqlErr.Message())
}

func TestForumRootPostingsQueryDepth(t *testing.T) {
	query := clients.QueryForumRootPostings()
	// One replies selection per nesting level below the root.
	assert.Equal(t, clients.MaxReplyDepth, strings.Count(query, "replies {"))
}
