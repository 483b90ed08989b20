package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 10 * time.Second

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the RabbitMQ management HTTP API.
type Client struct {
	baseURL    string
	credential Credential
	http       Doer
}

var _ Gateway = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the transport used for requests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.http = d
	}
}

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: timeout}
	}
}

// NewClient returns a client for the management API at brokerURL
// (e.g. http://localhost:15672) authenticating as cred by default.
func NewClient(brokerURL string, cred Credential, opts ...Option) (*Client, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker address %q: %w", brokerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid broker address %q: scheme must be http or https", brokerURL)
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(brokerURL, "/"),
		credential: cred,
		http:       &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) DefaultCredential() Credential {
	return c.credential
}

// Ping checks that api/overview answers 200 with the default credential.
func (c *Client) Ping(ctx context.Context) bool {
	resp, err := c.do(ctx, c.credential, http.MethodGet, apiPath("overview"), nil)
	if err != nil {
		log.Debug().Err(err).Msg("Management API not reachable")
		return false
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Msg("Management API not ready")
		return false
	}
	var overview models.OverviewDTO
	if err := json.NewDecoder(resp.Body).Decode(&overview); err == nil {
		log.Debug().
			Str("product", overview.ProductName).
			Str("version", overview.ProductVersion).
			Msg("Management API reachable")
	}
	return true
}

// apiPath joins escaped segments below /api. The vhost "/" becomes %2F.
func apiPath(segments ...string) string {
	var b strings.Builder
	b.WriteString("/api")
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, cred Credential, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	req.SetBasicAuth(cred.Username, cred.Password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug().Str("method", method).Str("path", path).Str("user", cred.Username).Msg("Management API request")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// expect consumes resp unless its status is one of statuses.
func expect(method, path string, resp *http.Response, statuses ...int) error {
	if slices.Contains(statuses, resp.StatusCode) {
		return nil
	}
	defer drain(resp)
	statusErr := &StatusError{Method: method, Path: path, Status: resp.StatusCode, Expected: statuses}
	var body models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		statusErr.Reason = body.Reason
		if statusErr.Reason == "" {
			statusErr.Reason = body.Error
		}
	}
	log.Error().Err(statusErr).Msg("Unexpected management API response")
	return statusErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// getJSON decodes the body of a 200 response into out.
func (c *Client) getJSON(ctx context.Context, cred Credential, path string, out any) error {
	resp, err := c.do(ctx, cred, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := expect(http.MethodGet, path, resp, http.StatusOK); err != nil {
		return err
	}
	defer drain(resp)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}

// getOptionalJSON is getJSON with 404 reported as found=false.
func (c *Client) getOptionalJSON(ctx context.Context, cred Credential, path string, out any) (bool, error) {
	resp, err := c.do(ctx, cred, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		drain(resp)
		return false, nil
	}
	if err := expect(http.MethodGet, path, resp, http.StatusOK); err != nil {
		return false, err
	}
	defer drain(resp)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("parsing %s response: %w", path, err)
	}
	return true, nil
}

// send issues a write and accepts 201 Created or 204 No Content.
func (c *Client) send(ctx context.Context, cred Credential, method, path string, body any) error {
	resp, err := c.do(ctx, cred, method, path, body)
	if err != nil {
		return err
	}
	if err := expect(method, path, resp, http.StatusCreated, http.StatusNoContent); err != nil {
		return err
	}
	drain(resp)
	return nil
}
