// Package api implements the agent gateway client: the blocking send and
// cancel requests, context-file fetches, and the two server-sent event
// channels (per-session telemetry and process-lifetime file updates).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nkall/periscope/internal/domain"
)

// HTTPClient interface for HTTP requests (enables testing)
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Verify http.Client implements HTTPClient
var _ HTTPClient = (*http.Client)(nil)

// Client talks to the agent gateway.
type Client struct {
	baseURL string
	client  HTTPClient
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string) *Client {
	return NewClientWith(baseURL, &http.Client{})
}

// NewClientWith creates a gateway client with a custom HTTP client.
func NewClientWith(baseURL string, client HTTPClient) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// BaseURL returns the configured gateway base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send posts a query and blocks until the agent finishes or errors. The
// telemetry for the exchange arrives out of band on the session's channel.
func (c *Client) Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResponse, error) {
	var resp domain.SendResponse
	if err := c.postJSON(ctx, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel asks the gateway to stop the session's in-flight work. Acceptance
// here is not confirmation; that arrives as a cancelled telemetry event.
func (c *Client) Cancel(ctx context.Context, sessionID string) (*domain.CancelResponse, error) {
	body := map[string]string{"session_id": sessionID}
	var resp domain.CancelResponse
	if err := c.postJSON(ctx, "/api/cancel", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchFile retrieves the current content and metadata of a context file.
// Any error means the file is missing on the gateway side.
func (c *Client) FetchFile(ctx context.Context, path string) (*domain.FileInfo, error) {
	u := c.baseURL + "/api/files?path=" + url.QueryEscape(path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch %s: gateway returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info domain.FileInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode file info: %w", err)
	}
	return &info, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
