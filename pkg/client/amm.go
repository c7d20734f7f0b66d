package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mina-swap/pkg/logger"
	"mina-swap/pkg/types"
)

const (
	quotePath = "/quote"
	swapPath  = "/swap"
)

// RequestError is returned when the AMM answers with a non-2xx status.
// Body is the raw response text; it is never parsed.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Body)
}

// AMMClient calls the quote and swap endpoints of an AMM service.
// It holds no mutable state and is safe for concurrent use.
type AMMClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// Option configures an AMMClient
type Option func(*AMMClient)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *AMMClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger used for per-request debug output
func WithLogger(log *logger.Logger) Option {
	return func(c *AMMClient) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewAMMClient creates a client for the AMM at baseURL.
// No request timeout is set; callers bound calls through the context.
func NewAMMClient(baseURL string, opts ...Option) *AMMClient {
	c := &AMMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL the client posts to
func (c *AMMClient) BaseURL() string {
	return c.baseURL
}

// FetchQuote asks the AMM for a price estimate without committing a trade
func (c *AMMClient) FetchQuote(ctx context.Context, req *types.QuoteRequest) (*types.QuoteResponse, error) {
	var resp types.QuoteResponse
	if err := c.post(ctx, quotePath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitSwap asks the AMM to execute a swap for the request's wallet
func (c *AMMClient) SubmitSwap(ctx context.Context, req *types.SwapRequest) (*types.SwapResponse, error) {
	var resp types.SwapResponse
	if err := c.post(ctx, swapPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseIdleConnections closes keep-alive connections held by the transport
func (c *AMMClient) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// post sends payload as JSON to path and decodes a 2xx body into out.
// Transport and decode errors are returned as produced.
func (c *AMMClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Debug("amm request failed")
		return err
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("amm request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return readErr
		}
		return &RequestError{StatusCode: resp.StatusCode, Body: string(text)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
