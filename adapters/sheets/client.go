package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
	"sheetsync/internal"
	apperrors "sheetsync/internal/errors"
)

// DefaultAction is the script action that returns a whole sheet
const DefaultAction = "getData"

// maxBodyBytes caps a single sheet response
const maxBodyBytes = 10 << 20

// Config describes the spreadsheet script endpoint
type Config struct {
	BaseURL   string
	Action    string
	Timeout   time.Duration
	RateLimit int // requests per minute, 0 disables limiting
	Headers   map[string]string
}

// Client fetches sheets from a spreadsheet-backed script endpoint with a
// form-encoded POST of action and sheet name.
type Client struct {
	config      Config
	httpClient  *http.Client
	rateLimiter *RateLimiter
	logger      *internal.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger
func WithLogger(l *internal.Logger) Option {
	return func(c *Client) { c.logger = l.Named("sheets") }
}

// NewClient creates a client for the configured endpoint
func NewClient(config Config, opts ...Option) *Client {
	if config.Action == "" {
		config.Action = DefaultAction
	}
	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(config.RateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the rate limiter timer
func (c *Client) Close() {
	c.rateLimiter.Stop()
}

// FetchDataset performs one round trip for name and decodes headers and rows.
// Row length is not checked here; dataset.New enforces the shape.
func (c *Client) FetchDataset(ctx context.Context, name dataset.Name) (dataset.Payload, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return dataset.Payload{}, apperrors.NetworkError(name.String(), fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := c.buildRequest(ctx, name)
	if err != nil {
		return dataset.Payload{}, apperrors.Wrap(err, "failed to build request")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dataset.Payload{}, apperrors.NetworkError(name.String(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return dataset.Payload{}, apperrors.NetworkError(name.String(), fmt.Errorf("read body: %w", err))
	}
	c.logger.Trace("%s responded %d in %s (%d bytes)", name, resp.StatusCode, time.Since(start), len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dataset.Payload{}, apperrors.NetworkError(name.String(),
			fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, snippet(body)))
	}

	payload, err := parseResponse(body)
	if err != nil {
		return dataset.Payload{}, apperrors.MalformedResponse(name.String(), err)
	}
	return payload, nil
}

// buildRequest creates the form POST identifying the sheet
func (c *Client) buildRequest(ctx context.Context, name dataset.Name) (*http.Request, error) {
	form := url.Values{}
	form.Set("action", c.config.Action)
	form.Set("sheet", name.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// parseResponse extracts {"headers": [...], "data": [[...], ...]}
func parseResponse(body []byte) (dataset.Payload, error) {
	if !gjson.ValidBytes(body) {
		return dataset.Payload{}, fmt.Errorf("response is not JSON: %s", snippet(body))
	}

	headersResult := gjson.GetBytes(body, "headers")
	if !headersResult.Exists() || !headersResult.IsArray() {
		if msg := gjson.GetBytes(body, "error"); msg.Exists() {
			return dataset.Payload{}, fmt.Errorf("%w: endpoint error %q", core.ErrMissingHeaders, msg.String())
		}
		return dataset.Payload{}, core.ErrMissingHeaders
	}

	dataResult := gjson.GetBytes(body, "data")
	if !dataResult.Exists() || !dataResult.IsArray() {
		return dataset.Payload{}, fmt.Errorf("data is missing or not an array")
	}

	headerValues := headersResult.Array()
	headers := make([]string, len(headerValues))
	for i, h := range headerValues {
		headers[i] = cellString(h)
	}

	rowValues := dataResult.Array()
	rows := make([][]string, len(rowValues))
	for i, r := range rowValues {
		if !r.IsArray() {
			return dataset.Payload{}, fmt.Errorf("row %d is not an array", i)
		}
		cells := r.Array()
		row := make([]string, len(cells))
		for j, cell := range cells {
			row[j] = cellString(cell)
		}
		rows[i] = row
	}

	return dataset.Payload{Headers: headers, Rows: rows}, nil
}

// cellString renders a JSON cell as sheet text: numbers keep their literal
// form and null becomes an empty cell.
func cellString(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	default:
		return v.Raw
	}
}

func snippet(body []byte) string {
	const max = 120
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
