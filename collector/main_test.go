package collector_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/basislager/dstcrawl/collector"
	"github.com/basislager/dstcrawl/collector/clients"
	"github.com/basislager/dstcrawl/store"
)

// graphqlRequest mirrors what the client posts to the gateway.
type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// fakeGateway dispatches GraphQL queries to per-operation handlers and
// counts requests per operation name.
type fakeGateway struct {
	handlers map[string]func(vars map[string]interface{}) string
	calls    map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		handlers: make(map[string]func(map[string]interface{}) string),
		calls:    make(map[string]int),
	}
}

func (f *fakeGateway) handle(operation string, fn func(vars map[string]interface{}) string) {
	f.handlers[operation] = fn
}

func (f *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for operation, fn := range f.handlers {
		if strings.Contains(req.Query, operation) {
			f.calls[operation]++
			fmt.Fprint(w, fn(req.Variables))
			return
		}
	}
	http.Error(w, "unhandled query", http.StatusBadRequest)
}

// profileResponse renders a successful legacy-profile lookup.
func profileResponse(name, memberID, createdAt string) string {
	return fmt.Sprintf(
		`{"data":{"getCommunityMemberPublic":{"name":%q,"memberId":%q,"memberCreatedAt":%q}}}`,
		name, memberID, createdAt,
	)
}

const deletedProfileResponse = `{"errors":[{"message":"Userprofile not found for the given id"}]}`

// newTestAPI wires the collector against fake site and gateway backends.
// A nil store leaves the API storage-less.
func newTestAPI(t *testing.T, site http.Handler, gateway http.Handler, s *store.Store) *collector.API {
	t.Helper()
	siteSrv := httptest.NewServer(site)
	t.Cleanup(siteSrv.Close)
	gatewaySrv := httptest.NewServer(gateway)
	t.Cleanup(gatewaySrv.Close)

	opts := []collector.Option{
		collector.WithClients(
			clients.NewSiteClientWithBase(siteSrv.URL),
			clients.NewGraphQLClientWithEndpoint(gatewaySrv.URL),
		),
	}
	if s != nil {
		opts = append(opts, collector.WithStore(s))
	}
	return collector.NewAPI(opts...)
}

// defaultGateway serves one generic active profile for any user lookup.
func defaultGateway() *fakeGateway {
	gw := newFakeGateway()
	gw.handle("LegacyProfilePublic", func(vars map[string]interface{}) string {
		return profileResponse(
			fmt.Sprintf("user-%v", vars["legacyMemberId"]),
			fmt.Sprintf("member-%v", vars["legacyMemberId"]),
			"2012-03-04T05:06:07Z",
		)
	})
	return gw
}
