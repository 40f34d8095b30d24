package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// ForumGatewayURL is the GraphQL endpoint of the newer forum backend.
const ForumGatewayURL = "https://api-gateway.prod.cloud.ds.at/forum-serve-graphql/v1/"

// GraphQLError is an error payload embedded in a 200 response. The gateway
// signals domain conditions ("Forum not found.", "Userprofile not found")
// only through the message text, so callers pattern-match on Message.
// These are never retried.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Message returns the first error message, which carries the domain signal.
func (e *GraphQLError) Message() string {
	if len(e.Messages) == 0 {
		return ""
	}
	return e.Messages[0]
}

// GraphQLClient executes queries against the forum gateway.
type GraphQLClient struct {
	c        *resty.Client
	endpoint string
}

// NewGraphQLClient creates a client for the production gateway.
func NewGraphQLClient() *GraphQLClient {
	return NewGraphQLClientWithEndpoint(ForumGatewayURL)
}

// NewGraphQLClientWithEndpoint points the client at a different gateway;
// tests use this to substitute a fake backend.
func NewGraphQLClientWithEndpoint(endpoint string) *GraphQLClient {
	return &GraphQLClient{c: newRetryingClient(), endpoint: endpoint}
}

// SetCookies installs the consent cookie jar for all later requests.
func (g *GraphQLClient) SetCookies(cookies map[string]string) {
	jar := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		jar = append(jar, &http.Cookie{Name: name, Value: value})
	}
	g.c.SetCookies(jar)
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute posts a query and decodes the data payload into out. Errors
// embedded in the envelope come back as *GraphQLError.
func (g *GraphQLClient) Execute(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	resp, err := g.c.R().
		SetContext(ctx).
		SetBody(graphqlRequest{Query: query, Variables: variables}).
		Post(g.endpoint)
	if err != nil {
		return errors.Wrap(err, "execute graphql query")
	}
	if resp.IsError() {
		return &HTTPStatusError{Code: resp.StatusCode(), URL: g.endpoint}
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return errors.Wrap(err, "decode graphql envelope")
	}
	if len(envelope.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errors.Wrap(err, "decode graphql data")
	}
	return nil
}
