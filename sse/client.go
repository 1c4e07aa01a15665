package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/scribehq/scribe"
)

const generatePath = "/v1/generate"

// Interface compliance check.
var _ scribe.Transport = (*Client)(nil)

// Client implements [scribe.Transport] over an HTTP SSE endpoint. The
// credential travels as an Authorization bearer header by default; see
// [WithQueryCredential] for channels that cannot set request headers.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	queryCredential bool
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithQueryCredential sends the credential as a "token" query parameter
// instead of an Authorization header. This is a compatibility fallback for
// EventSource-style channels that cannot attach request headers; prefer the
// header default everywhere else, since query strings tend to end up in
// access logs.
func WithQueryCredential() Option {
	return func(c *Client) { c.queryCredential = true }
}

// New creates a [Client] for the producer at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open validates req and opens one session stream. Validation failures are
// returned before any network activity. A non-200 response carrying the
// wire error shape returns an error wrapping the decoded
// [*scribe.SessionError], so callers can recover the producer's structured
// rejection with errors.As.
func (c *Client) Open(ctx context.Context, req scribe.Request) (scribe.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}

	u, err := url.Parse(c.baseURL + generatePath)
	if err != nil {
		return nil, fmt.Errorf("sse: base URL: %w", err)
	}
	q := u.Query()
	q.Set("repo_url", req.TargetRef)
	if req.TemplateID != nil {
		q.Set("template_id", strconv.Itoa(*req.TemplateID))
	}
	if req.Title != "" {
		q.Set("title", req.Title)
	}
	if c.queryCredential && req.Credential != "" {
		q.Set("token", req.Credential)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if !c.queryCredential && req.Credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sse: open session: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}
	return newStream(ctx, resp.Body), nil
}

// parseHTTPError maps a non-200 response to an error. Bodies in the wire
// error shape decode to a *scribe.SessionError; anything else is reported
// verbatim as a connection-level failure.
func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("sse: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var w wireError
	if err := json.Unmarshal(body, &w); err != nil || w.ErrorCode == "" {
		return fmt.Errorf("sse: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("sse: HTTP %d: %w", resp.StatusCode, decodeSessionError(w))
}
