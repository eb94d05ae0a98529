// Package weather provides a client for the weatherapi.com REST API.
//
// The client is used by the MCP weather server and by the API's weather
// smoke-test endpoint. Errors are classified with sentinel errors so callers
// can map them to protocol-level responses with errors.Is().
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/thetealover/aichat/internal/log"
)

var (
	// ErrCityNotFound indicates the provider has no location matching the query.
	ErrCityNotFound = errors.New("city not found")

	// ErrUnauthorized indicates the API key was rejected.
	ErrUnauthorized = errors.New("weather API key rejected")

	// ErrUpstream indicates the provider failed or returned an unexpected response.
	ErrUpstream = errors.New("weather provider unavailable")
)

// weatherapi.com error codes.
// Reference: https://www.weatherapi.com/docs/#intro-error-codes
const (
	codeNoLocation     = 1006
	codeKeyNotProvided = 1002
	codeKeyInvalid     = 2006
	codeKeyDisabled    = 2008
)

// maxResponseSize limits provider response bodies (resource exhaustion guard).
const maxResponseSize = 1 << 20

// Client calls the weatherapi.com API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a weatherapi.com client.
// baseURL is the API root (e.g., https://api.weatherapi.com/v1).
func NewClient(baseURL, apiKey string, logger log.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Current fetches current weather conditions for a city.
// The query accepts anything weatherapi.com accepts: city names,
// "lat,lon" pairs, postcodes, IATA codes.
func (c *Client) Current(ctx context.Context, city string) (*Current, error) {
	if city == "" {
		return nil, fmt.Errorf("%w: empty city query", ErrCityNotFound)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", city)

	reqURL := c.baseURL + "/current.json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("weather request failed", "city", city, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyError(resp.StatusCode, body, city)
	}

	var current Current
	if err := json.Unmarshal(body, &current); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return &current, nil
}

// classifyError maps a non-200 provider response to a sentinel error.
func (c *Client) classifyError(status int, body []byte, city string) error {
	var apiErr apiErrorEnvelope
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Code != 0 {
		switch apiErr.Error.Code {
		case codeNoLocation:
			return fmt.Errorf("%w: %q", ErrCityNotFound, city)
		case codeKeyNotProvided, codeKeyInvalid, codeKeyDisabled:
			c.logger.Error("weather API key rejected", "code", apiErr.Error.Code)
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error.Message)
		default:
			return fmt.Errorf("%w: %s (code %d)", ErrUpstream, apiErr.Error.Message, apiErr.Error.Code)
		}
	}
	return fmt.Errorf("%w: status %d", ErrUpstream, status)
}

// apiErrorEnvelope is the error body weatherapi.com returns on non-200 responses.
type apiErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
