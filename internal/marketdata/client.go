// Package marketdata implements the upstream market data clients.
//
// Every fetch is fail-soft: transport errors, non-2xx statuses and malformed
// payloads are logged and reported through a false ok value alongside the
// zero value of the declared shape. Nothing is retried.
package marketdata

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds every outbound call when no timeout is configured
const DefaultTimeout = 10 * time.Second

// restClient wraps a resty client bound to one provider
type restClient struct {
	provider string
	client   *resty.Client
	log      logrus.FieldLogger
}

func newRestClient(provider, baseURL string, timeout time.Duration, log logrus.FieldLogger) *restClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &restClient{
		provider: provider,
		client:   client,
		log:      log.WithField("provider", provider),
	}
}

// getBody issues a GET and returns the raw body of a 2xx response
func (c *restClient) getBody(ctx context.Context, path string, params map[string]string) ([]byte, bool) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("upstream request failed")
		return nil, false
	}
	if !resp.IsSuccess() {
		c.log.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode(),
		}).Warn("upstream returned error status")
		return nil, false
	}
	return resp.Body(), true
}

// getJSON issues a GET and decodes a 2xx JSON response into dest
func (c *restClient) getJSON(ctx context.Context, path string, params map[string]string, dest any) bool {
	body, ok := c.getBody(ctx, path, params)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		c.log.WithError(err).WithField("path", path).Warn("malformed upstream payload")
		return false
	}
	return true
}

// flexFloat decodes a JSON number, a numeric string or null. Anything
// unparseable decodes to zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}
