// Package dispatch provides Dispatcher implementations for running the
// channel standalone. Embedded hosts inject their own Dispatcher
// instead.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
)

// HTTPDispatcher forwards message contexts to a host dispatch endpoint
// and delivers the response text, if any.
type HTTPDispatcher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPDispatcher creates a dispatcher posting to url.
func NewHTTPDispatcher(url string, timeout time.Duration, logger *slog.Logger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPDispatcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, msg domain.MessageContext, deliver domain.DeliverFunc) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message context: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch call: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("dispatch endpoint status %d: %s", resp.StatusCode, respBody)
	}

	var reply domain.Reply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return fmt.Errorf("decode dispatch response: %w", err)
	}
	if reply.Text != "" {
		deliver(reply)
	}
	return nil
}

// EchoDispatcher replies with the inbound text. Smoke testing only.
type EchoDispatcher struct{}

func (EchoDispatcher) Dispatch(ctx context.Context, msg domain.MessageContext, deliver domain.DeliverFunc) error {
	deliver(domain.Reply{Text: msg.Content})
	return nil
}
