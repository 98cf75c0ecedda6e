// Package ticketing wraps the field-service ticketing system's call-log API.
// Businesses on the polled integration get their missed calls from here
// instead of from real-time webhooks.
package ticketing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"textback_backend/platform/logger"
)

// CallRecord is one call-log row from the ticketing system.
type CallRecord struct {
	ID          string    `json:"id"`
	Direction   string    `json:"direction"`
	CallerPhone string    `json:"callerPhone"`
	CallerName  string    `json:"callerName"`
	Answered    bool      `json:"answered"`
	StartedAt   time.Time `json:"startedAt"`
}

// CallLog lists call records for one business account.
type CallLog interface {
	MissedCallsSince(ctx context.Context, apiToken string, since time.Time) ([]CallRecord, error)
	HasOutboundCallTo(ctx context.Context, apiToken, phoneNumber string, since time.Time) (bool, error)
}

// Client talks to the ticketing system's JSON API. Each business supplies
// its own API token.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type callListResponse struct {
	Calls []CallRecord `json:"calls"`
}

// MissedCallsSince returns unanswered inbound calls logged after since.
func (c *Client) MissedCallsSince(ctx context.Context, apiToken string, since time.Time) ([]CallRecord, error) {
	q := url.Values{}
	q.Set("direction", "inbound")
	q.Set("answered", "false")
	q.Set("since", since.UTC().Format(time.RFC3339))

	var resp callListResponse
	if err := c.getJSON(ctx, apiToken, "/api/v2/calls?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("list missed calls: %w", err)
	}
	return resp.Calls, nil
}

// HasOutboundCallTo reports whether the business placed an outbound call to
// phoneNumber after since. Used to detect that the owner already called the
// lead back before the follow-up text goes out.
func (c *Client) HasOutboundCallTo(ctx context.Context, apiToken, phoneNumber string, since time.Time) (bool, error) {
	q := url.Values{}
	q.Set("direction", "outbound")
	q.Set("to", phoneNumber)
	q.Set("since", since.UTC().Format(time.RFC3339))

	var resp callListResponse
	if err := c.getJSON(ctx, apiToken, "/api/v2/calls?"+q.Encode(), &resp); err != nil {
		return false, fmt.Errorf("list outbound calls: %w", err)
	}
	return len(resp.Calls) > 0, nil
}

func (c *Client) getJSON(ctx context.Context, apiToken, path string, out interface{}) error {
	if c == nil {
		return fmt.Errorf("ticketing client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ticketing request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ticketing returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ticketing response: %w", err)
	}
	return nil
}
