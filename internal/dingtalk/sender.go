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

// Defaults for the zero-button action card fallback link.
const (
	defaultCardLinkTitle = "查看详情"
	defaultCardLinkURL   = "https://open.dingtalk.com"
)

// CardButton is one action on an interactive card.
type CardButton struct {
	Title string
	URL   string
}

// Card describes an interactive card send. With no buttons the card
// falls back to a single view-details link using LinkTitle/LinkURL (or
// built-in defaults when those are empty too).
type Card struct {
	Title     string
	Text      string
	Buttons   []CardButton
	LinkTitle string
	LinkURL   string
}

// Target addresses a send: a group conversation when
// OpenConversationID is set, otherwise a direct message to UserID.
type Target struct {
	OpenConversationID string
	UserID             string
}

// Sender turns content plus routing metadata into one of the platform
// message shapes and executes the delivery call. Fire-and-forget: one
// synchronous call either succeeds or returns a typed error, no retry
// and no queuing.
type Sender struct {
	base   string
	client *http.Client
	tokens *TokenCache
	logger *slog.Logger
}

// NewSender creates a sender against the given API base (empty =
// production) using tokens for bearer credentials.
func NewSender(base string, client *http.Client, tokens *TokenCache, logger *slog.Logger) *Sender {
	if base == "" {
		base = DefaultAPIBase
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Sender{base: base, client: client, tokens: tokens, logger: logger}
}

// SendGroup delivers content to a group conversation. An empty format
// means classify via markdown.Detect.
func (s *Sender) SendGroup(ctx context.Context, cred domain.AccountCredential, openConversationID, content string, format markdown.Format) error {
	msgKey, msgParam, err := buildMessage(content, format)
	if err != nil {
		return err
	}
	return s.postGroup(ctx, cred, openConversationID, msgKey, msgParam)
}

// SendDirect delivers content to a single user. Requires the account's
// robotCode.
func (s *Sender) SendDirect(ctx context.Context, cred domain.AccountCredential, userID, content string, format markdown.Format) error {
	msgKey, msgParam, err := buildMessage(content, format)
	if err != nil {
		return err
	}
	return s.postDirect(ctx, cred, userID, msgKey, msgParam)
}

// SendCard delivers an interactive card to the target.
func (s *Sender) SendCard(ctx context.Context, cred domain.AccountCredential, target Target, card Card) error {
	msgKey, msgParam, err := buildCard(card)
	if err != nil {
		return err
	}
	if target.OpenConversationID != "" {
		return s.postGroup(ctx, cred, target.OpenConversationID, msgKey, msgParam)
	}
	return s.postDirect(ctx, cred, target.UserID, msgKey, msgParam)
}

func (s *Sender) postGroup(ctx context.Context, cred domain.AccountCredential, openConversationID, msgKey, msgParam string) error {
	if openConversationID == "" {
		return &domain.ConfigError{Reason: "missing openConversationId"}
	}
	return s.post(ctx, cred, groupSendPath, groupSendRequest{
		MsgParam:           msgParam,
		MsgKey:             msgKey,
		OpenConversationID: openConversationID,
	})
}

func (s *Sender) postDirect(ctx context.Context, cred domain.AccountCredential, userID, msgKey, msgParam string) error {
	if cred.RobotCode == "" {
		return &domain.ConfigError{Reason: "missing robotCode"}
	}
	if userID == "" {
		return &domain.ConfigError{Reason: "missing userId"}
	}
	return s.post(ctx, cred, directSendPath, directSendRequest{
		RobotCode: cred.RobotCode,
		UserIDs:   []string{userID},
		MsgKey:    msgKey,
		MsgParam:  msgParam,
	})
}

// post executes one authenticated send call.
func (s *Sender) post(ctx context.Context, cred domain.AccountCredential, path string, payload any) error {
	token, err := s.tokens.Token(ctx, cred.ClientID, cred.ClientSecret)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, token)

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.SendErrors.Inc()
		return fmt.Errorf("send call: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SendErrors.Inc()
		return &domain.DeliveryError{Endpoint: path, Status: resp.StatusCode, Body: string(respBody)}
	}

	metrics.SendsTotal.Inc()
	s.logger.Debug("message sent", "endpoint", path, "status", resp.StatusCode)
	return nil
}

// buildMessage maps content onto msgKey + JSON-encoded msgParam per
// the detected (or overridden) format.
func buildMessage(content string, format markdown.Format) (string, string, error) {
	if format == "" {
		format = markdown.Detect(content)
	}
	switch format {
	case markdown.FormatMarkdown:
		param, err := json.Marshal(markdownParam{Title: markdown.Title(content), Text: content})
		if err != nil {
			return "", "", fmt.Errorf("encode msgParam: %w", err)
		}
		return msgKeyMarkdown, string(param), nil
	default:
		param, err := json.Marshal(textParam{Content: content})
		if err != nil {
			return "", "", fmt.Errorf("encode msgParam: %w", err)
		}
		return msgKeyText, string(param), nil
	}
}

// buildCard maps a card onto the single- or dual-action shape.
func buildCard(card Card) (string, string, error) {
	switch len(card.Buttons) {
	case 0:
		linkTitle := card.LinkTitle
		if linkTitle == "" {
			linkTitle = defaultCardLinkTitle
		}
		linkURL := card.LinkURL
		if linkURL == "" {
			linkURL = defaultCardLinkURL
		}
		param, err := json.Marshal(actionCardParam{
			Title:       card.Title,
			Text:        card.Text,
			SingleTitle: linkTitle,
			SingleURL:   linkURL,
		})
		if err != nil {
			return "", "", fmt.Errorf("encode msgParam: %w", err)
		}
		return msgKeyActionCard, string(param), nil
	case 1:
		param, err := json.Marshal(actionCardParam{
			Title:       card.Title,
			Text:        card.Text,
			SingleTitle: card.Buttons[0].Title,
			SingleURL:   card.Buttons[0].URL,
		})
		if err != nil {
			return "", "", fmt.Errorf("encode msgParam: %w", err)
		}
		return msgKeyActionCard, string(param), nil
	default:
		param, err := json.Marshal(actionCard2Param{
			Title:        card.Title,
			Text:         card.Text,
			ActionTitle1: card.Buttons[0].Title,
			ActionURL1:   card.Buttons[0].URL,
			ActionTitle2: card.Buttons[1].Title,
			ActionURL2:   card.Buttons[1].URL,
		})
		if err != nil {
			return "", "", fmt.Errorf("encode msgParam: %w", err)
		}
		return msgKeyActionCard2, string(param), nil
	}
}
