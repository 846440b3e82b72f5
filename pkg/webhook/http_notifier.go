package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultDeliveryTimeout = 5 * time.Second

// HTTPNotifier delivers signed events to a single consumer endpoint.
type HTTPNotifier struct {
	url    string
	signer *Signer
	client *http.Client
}

// HTTPNotifierConfig configures the delivery endpoint and signing secret.
type HTTPNotifierConfig struct {
	URL         string
	APIKey      string
	MaxEventAge time.Duration
	Timeout     time.Duration
}

// NewHTTPNotifier builds a notifier posting to cfg.URL.
func NewHTTPNotifier(cfg HTTPNotifierConfig) (*HTTPNotifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &HTTPNotifier{
		url:    cfg.URL,
		signer: NewSigner(cfg.APIKey, cfg.MaxEventAge),
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Notify signs and posts the event. Any non-2xx answer is an error; callers
// treat delivery as best effort and only log failures.
func (n *HTTPNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range n.signer.Headers(body, time.Now().UTC()) {
		req.Header.Set(name, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook consumer answered status %d", resp.StatusCode)
	}
	return nil
}
