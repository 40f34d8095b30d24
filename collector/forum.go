package collector

import (
	"context"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"

	"github.com/basislager/dstcrawl/collector/clients"
	"github.com/basislager/dstcrawl/model"
	Logger "github.com/basislager/dstcrawl/utils/log"
)

type forumInfoData struct {
	GetForumByContextUri struct {
		ID string `json:"id"`
	} `json:"getForumByContextUri"`
}

// GetForumID maps an article's canonical URL to its opaque forum ID. Some
// articles have no attached forum; that is not an error and comes back as
// ok == false.
func (a *API) GetForumID(ctx context.Context, article *model.Article) (id string, ok bool, err error) {
	var data forumInfoData
	err = a.gql.Execute(ctx, clients.QueryForumInfo, map[string]interface{}{
		"contextUri": a.site.URL("/story/%d", article.ID),
	}, &data)
	if err != nil {
		var gqlErr *clients.GraphQLError
		if errors.As(err, &gqlErr) && gqlErr.Message() == "Forum not found." {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "resolve forum of article %d", article.ID)
	}
	return data.GetForumByContextUri.ID, true, nil
}

// forumPostingNode mirrors the PostingInfo fragment, with replies nested
// to the query's fixed maximum depth.
type forumPostingNode struct {
	ID     string `json:"id"`
	Author *struct {
		LegacyData struct {
			LegacyCommunityIdentity *int64 `json:"legacyCommunityIdentity"`
		} `json:"legacyData"`
	} `json:"author"`
	Legacy struct {
		PostingID int64 `json:"postingId"`
	} `json:"legacy"`
	Title   *string `json:"title"`
	Text    *string `json:"text"`
	History struct {
		Created string `json:"created"`
	} `json:"history"`
	Reactions struct {
		Aggregated []struct {
			Name  string `json:"name"`
			Value int    `json:"value"`
		} `json:"aggregated"`
	} `json:"reactions"`
	Replies []forumPostingNode `json:"replies"`
}

// reaction looks up an aggregated reaction count by name; entries absent
// from the list default to 0.
func (n *forumPostingNode) reaction(name string) int {
	for _, e := range n.Reactions.Aggregated {
		if e.Name == name {
			return e.Value
		}
	}
	return 0
}

type forumRootPostingsData struct {
	GetForumRootPostingsV2 struct {
		PageInfo struct {
			NextCursor  *string `json:"nextCursor"`
			HasNextPage bool    `json:"hasNextPage"`
		} `json:"pageInfo"`
		Edges []struct {
			Node forumPostingNode `json:"node"`
		} `json:"edges"`
	} `json:"getForumRootPostingsV2"`
}

// GetArticlePostings fetches the whole forum below an article. Pagination
// runs over root postings only; each root arrives with its reply tree
// nested to a fixed depth and is flattened pre-order, so every posting is
// emitted after its parent and parent links are object references. Each
// page is merged before the next one is fetched. Articles without a forum
// yield an empty sequence.
func (a *API) GetArticlePostings(ctx context.Context, article *model.Article) ([]*model.Posting, error) {
	forumID, ok, err := a.GetForumID(ctx, article)
	if err != nil {
		return nil, err
	}
	if !ok {
		Logger.Log.Infof("article %d has no forum", article.ID)
		return nil, nil
	}

	query := clients.QueryForumRootPostings()
	var all []*model.Posting
	cursor := ""
	for {
		var data forumRootPostingsData
		err := a.gql.Execute(ctx, query, map[string]interface{}{
			"id":         forumID,
			"nextCursor": cursor,
		}, &data)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch forum page of article %d", article.ID)
		}

		var page []*model.Posting
		for _, edge := range data.GetForumRootPostingsV2.Edges {
			page, err = a.flattenForumPosting(ctx, article, edge.Node, nil, page)
			if err != nil {
				return nil, err
			}
		}
		if a.store != nil && len(page) > 0 {
			if err := a.store.MergePostings(page...); err != nil {
				return nil, err
			}
		}
		all = append(all, page...)

		info := data.GetForumRootPostingsV2.PageInfo
		if !info.HasNextPage || info.NextCursor == nil {
			break
		}
		cursor = *info.NextCursor
	}

	Logger.Log.Infof("article %d: fetched %d postings", article.ID, len(all))
	return all, nil
}

// flattenForumPosting emits node before its descendants, appending to out.
func (a *API) flattenForumPosting(
	ctx context.Context,
	article *model.Article,
	node forumPostingNode,
	parent *model.Posting,
	out []*model.Posting,
) ([]*model.Posting, error) {
	user := model.None[model.User]()
	if node.Author != nil {
		// A reported legacy identity of 0 means the backend has no author
		// on record; the posting stays anonymous.
		if legacyID := node.Author.LegacyData.LegacyCommunityIdentity; legacyID != nil && *legacyID != 0 {
			author, err := a.GetUser(ctx, *legacyID)
			if err != nil {
				return nil, err
			}
			user = model.ByObj(author)
		}
	}

	published, err := dateparse.ParseAny(node.History.Created)
	if err != nil {
		return nil, errors.Wrapf(err, "parse publish date of posting %s", node.ID)
	}

	objectID := node.ID
	posting, err := model.NewArticlePosting(
		node.Legacy.PostingID,
		&objectID,
		user,
		model.ByObj(parent),
		published.UTC(),
		node.reaction("positive"),
		node.reaction("negative"),
		node.Title,
		node.Text,
		model.ByObj(article),
	)
	if err != nil {
		return nil, err
	}
	out = append(out, posting)

	for _, reply := range node.Replies {
		out, err = a.flattenForumPosting(ctx, article, reply, posting, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
