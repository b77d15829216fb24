package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/config"
)

// Headers sent to the Cloudflare Access proxy in front of remote deployments
const (
	HeaderCFClientID     = "CF-Access-Client-Id"
	HeaderCFClientSecret = "CF-Access-Client-Secret"
)

const (
	maxResponseBytes = 10 * 1024 * 1024
	debugBodyLimit   = 500
)

// ModelAPI is the subset of the OpenWebUI API the updater talks to
type ModelAPI interface {
	Get(ctx context.Context, path string) (*APIResponse, error)
	Post(ctx context.Context, path string, query url.Values, payload interface{}) (*APIResponse, error)
}

// APIResponse is a raw API reply. JSON is nil when the body did not parse,
// in which case Text carries the body as a fallback value.
type APIResponse struct {
	StatusCode int
	JSON       json.RawMessage
	Text       string
}

// IsJSON reports whether the body parsed as JSON
func (r *APIResponse) IsJSON() bool {
	return r != nil && r.JSON != nil
}

// OpenWebUIClient wraps an HTTP client with the updater's auth headers
type OpenWebUIClient struct {
	httpClient *http.Client
	baseURL    string
	headers    http.Header
	logger     *slog.Logger
	metrics    *Metrics
}

// NewOpenWebUIClient creates a client for cfg.APIBaseURL(). metrics may be nil.
func NewOpenWebUIClient(cfg *config.Config, logger *slog.Logger, metrics *Metrics) *OpenWebUIClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20, // default is 2, too low for the worker pool
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.APIKey)
	headers.Set("Content-Type", "application/json")
	if cfg.ProxyHeaders {
		headers.Set(HeaderCFClientID, cfg.CFClientID)
		headers.Set(HeaderCFClientSecret, cfg.CFClientSecret)
	}

	return &OpenWebUIClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL: cfg.APIBaseURL(),
		headers: headers,
		logger:  logger,
		metrics: metrics,
	}
}

// Get performs a GET request against path
func (c *OpenWebUIClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	return c.do(ctx, http.MethodGet, path, nil, nil)
}

// Post sends payload as JSON to path with the given query parameters
func (c *OpenWebUIClient) Post(ctx context.Context, path string, query url.Values, payload interface{}) (*APIResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, query, body)
}

func (c *OpenWebUIClient) do(ctx context.Context, method, path string, query url.Values, body []byte) (*APIResponse, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %s: %w", path, err)
	}
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	c.logger.Debug(fmt.Sprintf("Executing API call: %s %s", method, endpoint.Path))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range c.headers {
		req.Header[key] = values
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRequest(method, path, "error", time.Since(start))
		c.logger.Error(fmt.Sprintf("API call failed: %v", err))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.RecordRequest(method, path, "error", time.Since(start))
		c.logger.Error(fmt.Sprintf("API call failed: %v", err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	result := &APIResponse{StatusCode: resp.StatusCode}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		result.JSON = json.RawMessage(trimmed)
		c.metrics.RecordRequest(method, path, "json", time.Since(start))
	} else {
		result.Text = string(data)
		c.metrics.RecordRequest(method, path, "text", time.Since(start))
		c.logger.Debug("Response is not JSON: "+truncate(result.Text, debugBodyLimit), "status", resp.StatusCode)
	}

	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// describe renders a response for debug logs
func describe(resp *APIResponse) string {
	switch {
	case resp == nil:
		return "<no response>"
	case resp.IsJSON():
		return string(resp.JSON)
	default:
		return strings.TrimSpace(resp.Text)
	}
}
