// Package collector is the incremental fetch-and-merge engine. It speaks
// two backends, the legacy ticker JSON API and the GraphQL forum gateway,
// normalizes their records into the entity graph of the model package and
// merges every finished page into storage, so a crawl can be interrupted
// and resumed without duplicating rows.
package collector

import (
	"context"
	"encoding/json"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/basislager/dstcrawl/collector/clients"
	"github.com/basislager/dstcrawl/collector/consent"
	"github.com/basislager/dstcrawl/model"
	"github.com/basislager/dstcrawl/store"
	Logger "github.com/basislager/dstcrawl/utils/log"
)

// ErrMissingField reports a backend response without an expected field.
// There is no silent defaulting outside the spots where the backend
// legitimately omits data (optional titles, absent reaction entries).
var ErrMissingField = errors.New("missing expected field in response")

// userCacheSize bounds the resolver cache. One crawl rarely sees more
// distinct authors than this.
const userCacheSize = 65536

// API is the unified crawl interface for tickers and forums. One instance
// spans one crawl session: its clients share a connection pool and cookie
// set, and the user cache is valid for the instance's lifetime. With a
// store configured, every fetched batch is merged as soon as it completes;
// without one, all entities stay transient.
type API struct {
	site                *clients.SiteClient
	gql                 *clients.GraphQLClient
	store               *store.Store
	users               *lru.Cache[int64, userCacheEntry]
	expandRelationships bool
}

type userCacheEntry struct {
	user          *model.User
	relationships bool
}

// Option customizes an API instance.
type Option func(*API)

// WithStore merges everything the API fetches into s.
func WithStore(s *store.Store) Option {
	return func(a *API) { a.store = s }
}

// WithRelationshipExpansion makes every user lookup of the session fetch
// the follow graph as well, as if each carried WithRelationships.
func WithRelationshipExpansion() Option {
	return func(a *API) { a.expandRelationships = true }
}

// WithClients substitutes the outbound clients; tests point them at fake
// backends.
func WithClients(site *clients.SiteClient, gql *clients.GraphQLClient) Option {
	return func(a *API) {
		a.site = site
		a.gql = gql
	}
}

// NewAPI creates a crawl session.
func NewAPI(opts ...Option) *API {
	a := &API{
		site: clients.NewSiteClient(),
		gql:  clients.NewGraphQLClient(),
	}
	for _, opt := range opts {
		opt(a)
	}
	cache, err := lru.New[int64, userCacheEntry](userCacheSize)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	a.users = cache
	return a
}

// UpdateCookies runs the consent flow and installs the resulting cookies
// into both clients.
func (a *API) UpdateCookies(ctx context.Context) error {
	cookies, err := consent.AcceptConditions(ctx)
	if err != nil {
		return err
	}
	a.site.SetCookies(cookies)
	a.gql.SetCookies(cookies)
	Logger.Log.Info("consent cookies updated")
	return nil
}

var pageConfigRe = regexp.MustCompile(`window\.DERSTANDARD\.pageConfig\.init\((\{.*\})\);`)

// pageConfig is the JSON configuration blob embedded in ticker and article
// page markup.
type pageConfig struct {
	Nodes                 []string `json:"nodes"`
	ContentPublishingDate string   `json:"contentPublishingDate"`
	ContentTitle          string   `json:"contentTitle"`
	ContentSummary        string   `json:"contentSummary"`
}

// extractPageConfig locates and parses the embedded page config. Pages
// without one yield the zero config.
func extractPageConfig(page string) pageConfig {
	var config pageConfig
	match := pageConfigRe.FindStringSubmatch(page)
	if match == nil {
		return config
	}
	if err := json.Unmarshal([]byte(match[1]), &config); err != nil {
		Logger.Log.Warn("malformed page config, ignored: ", err)
		return pageConfig{}
	}
	return config
}

// topicsFor resolves topic names to canonical Topic instances. With a store
// each name maps to the unique row with that name, created on first sight;
// within one call a name never yields two instances. Without a store every
// new name yields a fresh transient topic, deduplicated only against
// earlier names of the same call.
func (a *API) topicsFor(names []string) ([]*model.Topic, error) {
	topics := make([]*model.Topic, 0, len(names))
	byName := make(map[string]*model.Topic, len(names))
	for _, name := range names {
		if _, ok := byName[name]; ok {
			continue
		}
		var topic *model.Topic
		if a.store != nil {
			var err error
			topic, err = a.store.FindOrCreateTopic(name)
			if err != nil {
				return nil, err
			}
		} else {
			topic = model.NewTopic(name)
		}
		byName[name] = topic
		topics = append(topics, topic)
	}
	return topics, nil
}
