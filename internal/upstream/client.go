package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/metrics"
)

const maxBodyBytes = 4 << 20

// Client fetches JSON documents from one third-party source.
type Client struct {
	source    string
	userAgent string
	client    *http.Client
}

// New creates a client; the timeout bounds each call end to end.
func New(source string, timeout time.Duration, userAgent string) *Client {
	return NewWithHTTPClient(source, userAgent, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(source, userAgent string, hc *http.Client) *Client {
	if userAgent == "" {
		userAgent = "TravelSafe/1.0"
	}
	return &Client{source: source, userAgent: userAgent, client: hc}
}

// Source returns the name used in errors and metrics.
func (c *Client) Source() string {
	return c.source
}

// FetchJSON decodes the document at url into a generic value.
// A 404 yields an error matching ErrNotFound.
func (c *Client) FetchJSON(ctx context.Context, url string) (any, error) {
	var doc any
	if err := c.GetJSON(ctx, url, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetJSON decodes the document at url into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	start := time.Now()
	status := "ok"
	defer func() {
		metrics.RecordUpstreamCall(c.source, status, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		status = "error"
		return c.fail(url, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return c.fail(url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		status = "not_found"
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%s %s: %w", c.source, url, apperrors.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status = "error"
		return c.fail(url, resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		status = "error"
		return c.fail(url, resp.StatusCode, fmt.Errorf("parse JSON: %w", err))
	}
	return nil
}

func (c *Client) fail(url string, statusCode int, err error) error {
	return &apperrors.UpstreamError{Source: c.source, URL: url, StatusCode: statusCode, Err: err}
}
