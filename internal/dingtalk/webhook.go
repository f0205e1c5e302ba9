package dingtalk

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
	"github.com/Charles311/openclaw-channel-dingtalk/internal/markdown"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/metrics"
)

// WebhookReplier posts reply content to the per-event session webhook
// URL supplied by the inbound transport. These URLs are pre-authorized,
// so no auth header is attached.
type WebhookReplier struct {
	client *http.Client
	logger *slog.Logger
}

func NewWebhookReplier(client *http.Client, logger *slog.Logger) *WebhookReplier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookReplier{client: client, logger: logger}
}

// Reply formats content via the markdown detector and posts the
// resulting message shape to webhookURL.
func (r *WebhookReplier) Reply(ctx context.Context, webhookURL, content string) error {
	var payload any
	switch markdown.Detect(content) {
	case markdown.FormatMarkdown:
		payload = webhookMarkdownMessage{
			Msgtype:  "markdown",
			Markdown: markdownParam{Title: markdown.Title(content), Text: content},
		}
	default:
		payload = webhookTextMessage{
			Msgtype: "text",
			Text:    textParam{Content: content},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook reply: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		metrics.SendErrors.Inc()
		return fmt.Errorf("webhook reply: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SendErrors.Inc()
		return &domain.DeliveryError{Endpoint: "session webhook", Status: resp.StatusCode, Body: string(respBody)}
	}

	metrics.SendsTotal.Inc()
	r.logger.Debug("webhook reply delivered", "status", resp.StatusCode)
	return nil
}
