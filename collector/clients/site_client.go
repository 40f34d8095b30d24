// Package clients holds the outbound HTTP clients shared by the collector:
// one for the news site itself (legacy ticker JSON API plus HTML pages) and
// one for the GraphQL forum gateway. Both carry the same retry policy:
// exponential backoff with jitter on transport faults and 5xx responses,
// capped by a total backoff window. Application-level errors embedded in a
// 200 response are never retried here; they are domain outcomes for the
// caller to interpret.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	// SiteBaseURL is the news site serving pages and the ticker API.
	SiteBaseURL = "https://www.derstandard.at"

	// RetryMaxBackoff caps the exponential backoff between attempts.
	RetryMaxBackoff = 5 * time.Minute
	// retryCount keeps the total backoff spent on one request inside the
	// five-minute budget.
	retryCount = 9
	retryBase  = 500 * time.Millisecond
)

// HTTPStatusError is a non-2xx response that survived the retry policy
// (4xx immediately, 5xx after the budget is exhausted).
type HTTPStatusError struct {
	Code int
	URL  string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Code)
}

// newRetryingClient builds a resty client with the shared retry policy.
func newRetryingClient() *resty.Client {
	return resty.New().
		SetHeader("content-type", "application/json").
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryBase).
		SetRetryMaxWaitTime(RetryMaxBackoff).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				// Connection failure or timeout.
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError
		})
}

// SiteClient talks to the news site. One instance owns one connection pool
// and one cookie set, spanning a whole crawl session.
type SiteClient struct {
	c *resty.Client
}

// NewSiteClient creates a client for the production site.
func NewSiteClient() *SiteClient {
	return NewSiteClientWithBase(SiteBaseURL)
}

// NewSiteClientWithBase points the client at a different host; tests use
// this to substitute a fake backend.
func NewSiteClientWithBase(base string) *SiteClient {
	return &SiteClient{c: newRetryingClient().SetBaseURL(base)}
}

// SetCookies installs the consent cookie jar for all later requests.
func (s *SiteClient) SetCookies(cookies map[string]string) {
	jar := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		jar = append(jar, &http.Cookie{Name: name, Value: value})
	}
	s.c.SetCookies(jar)
}

// URL renders an absolute URL below the client's base.
func (s *SiteClient) URL(format string, args ...interface{}) string {
	return s.c.BaseURL + fmt.Sprintf(format, args...)
}

// GetJSON fetches a ticker API endpoint and decodes the JSON body.
func (s *SiteClient) GetJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := s.c.R().SetContext(ctx).Get(path)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	if resp.IsError() {
		return &HTTPStatusError{Code: resp.StatusCode(), URL: resp.Request.URL}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(err, "decode response of %s", path)
	}
	return nil
}

// Page fetches an HTML page and returns its markup.
func (s *SiteClient) Page(ctx context.Context, path string) (string, error) {
	resp, err := s.c.R().SetContext(ctx).Get(path)
	if err != nil {
		return "", errors.Wrapf(err, "GET %s", path)
	}
	if resp.IsError() {
		return "", &HTTPStatusError{Code: resp.StatusCode(), URL: resp.Request.URL}
	}
	return string(resp.Body()), nil
}
