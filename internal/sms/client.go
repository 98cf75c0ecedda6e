// Package sms wraps the outbound messaging provider's REST API.
package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"textback_backend/platform/config"
	"textback_backend/platform/logger"
)

// Sender delivers one SMS from a business number to a recipient.
type Sender interface {
	Send(ctx context.Context, from, to, body string) error
}

// Client talks to the messaging provider. A token-bucket limiter keeps
// bursts of poll-driven sends under the provider's account rate cap.
type Client struct {
	baseURL   string
	accountID string
	authToken string
	http      *http.Client
	limiter   *rate.Limiter
	log       *logger.Logger
}

func NewClient(cfg config.SMSConfig, log *logger.Logger) *Client {
	if cfg.GetSMSBaseURL() == "" {
		return nil
	}

	perSecond := cfg.GetSMSSendRatePerSecond()
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := cfg.GetSMSSendBurst()
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.GetSMSBaseURL(), "/"),
		accountID: cfg.GetSMSAccountID(),
		authToken: cfg.GetSMSAuthToken(),
		http:      &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
		log:       log,
	}
}

func (c *Client) Send(ctx context.Context, from, to, body string) error {
	if c == nil {
		return fmt.Errorf("sms client not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit wait: %w", err)
	}

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("sms sent", "to", to)
	return nil
}
