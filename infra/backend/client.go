// Package backend is the HTTP client of the scheduling service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/prodcal/auth"
	"github.com/kilianp07/prodcal/core/logger"
	"github.com/kilianp07/prodcal/core/normalize"
	"github.com/kilianp07/prodcal/core/schedule"
)

// DefaultPath is the scheduling endpoint relative to the base URL.
const DefaultPath = "/api/schedule"

// maxBody bounds how much of a response is read.
const maxBody = 32 << 20

// Options configures a Client.
type Options struct {
	BaseURL string
	Path    string
	Timeout time.Duration
	Auth    auth.Conf
}

// Client posts schedule requests and decodes the response. It implements
// schedule.Fetcher.
type Client struct {
	url   string
	http  *http.Client
	creds *auth.ClientCred
	log   logger.Logger
}

// NewClient returns a Client for opts. A zero Timeout means 30 seconds.
func NewClient(opts Options, log logger.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend url is required")
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	c := &Client{
		url:  strings.TrimRight(opts.BaseURL, "/") + "/" + strings.TrimLeft(opts.Path, "/"),
		http: &http.Client{Timeout: opts.Timeout},
		log:  log,
	}
	if opts.Auth.Enabled() {
		c.creds = auth.NewClientCred(opts.Auth)
	}
	return c, nil
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string { return c.url }

// Fetch posts req. Non-2xx answers become *schedule.StatusError or
// *schedule.ValidationError. A 401 with configured credentials is retried
// once with a fresh token.
func (c *Client) Fetch(ctx context.Context, req schedule.Request) (normalize.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return normalize.Response{}, fmt.Errorf("encode request: %w", err)
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return normalize.Response{}, err
	}
	if resp.StatusCode == http.StatusUnauthorized && c.creds != nil {
		resp.Body.Close()
		c.log.Warnf("backend rejected token, refreshing")
		if _, err := c.creds.ForceRefresh(ctx); err != nil {
			return normalize.Response{}, err
		}
		if resp, err = c.post(ctx, body); err != nil {
			return normalize.Response{}, err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return normalize.Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return normalize.Response{}, schedule.ParseErrorBody(resp.StatusCode, data)
	}
	var out normalize.Response
	if err := json.Unmarshal(data, &out); err != nil {
		return normalize.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.creds != nil {
		if err := c.creds.SetAuthHeader(httpReq); err != nil {
			return nil, err
		}
	}
	c.log.Debugf("POST %s", c.url)
	return c.http.Do(httpReq)
}
