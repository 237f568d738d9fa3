// Package client talks to a running wishlist server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/syahfalah4787/wishlist-bug/internal/changelog"
)

// Client reads changelogs from a wishlist server
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL (e.g. http://localhost:8080)
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetTimeout sets the timeout for each request
func (c *Client) SetTimeout(timeout time.Duration) {
	c.http.Timeout = timeout
}

type changelogBody struct {
	Data  string           `json:"data"`
	Stats changelog.Counts `json:"stats"`
	Error string           `json:"error,omitempty"`
}

// Changelog fetches the current changelog. A server whose store is unusable
// still answers; its sentinel text comes back as the report text.
func (c *Client) Changelog(ctx context.Context) (changelog.Report, error) {
	resp, err := c.get(ctx, "/api/changelog")
	if err != nil {
		return changelog.Report{}, err
	}
	defer resp.Body.Close()

	var body changelogBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return changelog.Report{}, fmt.Errorf("failed to decode changelog: %w", err)
	}
	return changelog.Report{Text: body.Data, Counts: body.Stats}, nil
}

// DownloadChangelog fetches the changelog attachment and the file name the server chose
func (c *Client) DownloadChangelog(ctx context.Context) (string, []byte, error) {
	resp, err := c.get(ctx, "/api/changelog/download")
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read changelog: %w", err)
	}

	filename := changelog.DownloadFilename(time.Now())
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return filename, body, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server (is it running?): %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("server returned %s for %s", resp.Status, path)
	}
	return resp, nil
}
