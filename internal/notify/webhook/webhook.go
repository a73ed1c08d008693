// Package webhook posts change notifications as JSON to an HTTP endpoint.
package webhook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/JakeFAU/availmon/internal/monitor"
)

// Config controls the webhook notifier.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// Payload is the request body.
type Payload struct {
	Subject    string    `json:"subject"`
	Text       string    `json:"text"`
	URL        string    `json:"url"`
	Previous   int       `json:"previous"`
	Current    int       `json:"current"`
	ObservedAt time.Time `json:"observed_at"`
}

// Notifier implements monitor.Notifier over HTTP.
type Notifier struct {
	url    string
	client *resty.Client
}

// New builds a Notifier. An empty URL yields a notifier that reports ErrNotConfigured.
func New(cfg Config) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.Headers)
	return &Notifier{url: strings.TrimSpace(cfg.URL), client: client}
}

// Notify posts msg and treats any non-2xx response as a failure.
func (n *Notifier) Notify(ctx context.Context, msg monitor.Message) error {
	if n.url == "" {
		return fmt.Errorf("%w: webhook url is empty", monitor.ErrNotConfigured)
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(Payload{
			Subject:    msg.Subject,
			Text:       msg.Body,
			URL:        msg.URL,
			Previous:   msg.Previous,
			Current:    msg.Current,
			ObservedAt: msg.ObservedAt.UTC(),
		}).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("%w: post webhook: %v", monitor.ErrNotification, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: webhook returned %s", monitor.ErrNotification, resp.Status())
	}
	return nil
}
