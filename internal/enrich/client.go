package enrich

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sortbook/internal/logging"
)

const (
	defaultSource      = "sortbook"
	defaultAttempts    = 3
	defaultHTTPTimeout = 60 * time.Second
)

// Client submits enrichment requests over HTTP. Transport failures and
// non-2xx statuses come back as synthesized failure responses, never
// as errors.
type Client struct {
	endpoint   string
	source     string
	attempts   int
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption customizes the workflow client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSource overrides the source tag used in synthesized failures.
func WithSource(source string) ClientOption {
	return func(c *Client) {
		source = strings.TrimSpace(source)
		if source != "" {
			c.source = source
		}
	}
}

// WithAttempts bounds transport retries.
func WithAttempts(attempts int) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}

// WithTimeout sets the per-call timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithInsecureTLS disables certificate verification. Test endpoints
// behind self-signed certificates need it.
func WithInsecureTLS(insecure bool) ClientOption {
	return func(c *Client) {
		if !insecure {
			return
		}
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a workflow client for the endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		source:     defaultSource,
		attempts:   defaultAttempts,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Call posts the request and normalizes the reply. Retries are bounded
// and apply only to transport failures and 5xx statuses.
func (c *Client) Call(ctx context.Context, request *Request) Response {
	encoded, err := json.Marshal(request)
	if err != nil {
		return Failure(c.source, fmt.Sprintf("encode workflow request: %v", err), nil)
	}

	var lastFailure Response
	for attempt := 1; attempt <= c.attempts; attempt++ {
		response, retryable := c.post(ctx, request.RequestID, encoded)
		if response.Success || !retryable {
			return response
		}
		lastFailure = response
		c.logger.Warn("workflow call failed",
			logging.String("request_id", request.RequestID),
			logging.Int("attempt", attempt),
			logging.String("error", response.ErrorMessage()))
		if attempt < c.attempts {
			select {
			case <-ctx.Done():
				return Failure(c.source, fmt.Sprintf("workflow call canceled: %v", ctx.Err()), nil)
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return lastFailure
}

// post performs one HTTP exchange. The second return value reports
// whether the failure is worth retrying.
func (c *Client) post(ctx context.Context, requestID string, body []byte) (Response, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Failure(c.source, fmt.Sprintf("build workflow request: %v", err), nil), false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Failure(c.source, fmt.Sprintf("network error calling workflow: %v", err), nil), true
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failure(c.source, fmt.Sprintf("read workflow response: %v", err), nil), true
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fmt.Sprintf("workflow HTTP error: %d - %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return Failure(c.source, message, nil), resp.StatusCode >= 500
	}
	return Parse(raw, c.source), false
}
