package dingtalk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
)

func TestReply_TextShape(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		if r.Header.Get(accessTokenHeader) != "" {
			t.Error("webhook reply should not carry an access token")
		}
		w.Write([]byte(`{"errcode":0}`))
	}))
	defer srv.Close()

	rep := NewWebhookReplier(srv.Client(), testLogger())
	if err := rep.Reply(context.Background(), srv.URL, "just words"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	var msg webhookTextMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if msg.Msgtype != "text" {
		t.Errorf("msgtype = %s", msg.Msgtype)
	}
	if msg.Text.Content != "just words" {
		t.Errorf("content = %q", msg.Text.Content)
	}
}

func TestReply_MarkdownShape(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"errcode":0}`))
	}))
	defer srv.Close()

	rep := NewWebhookReplier(srv.Client(), testLogger())
	content := "**bold** statement"
	if err := rep.Reply(context.Background(), srv.URL, content); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	var msg webhookMarkdownMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if msg.Msgtype != "markdown" {
		t.Errorf("msgtype = %s", msg.Msgtype)
	}
	if msg.Markdown.Text != content {
		t.Errorf("text = %q", msg.Markdown.Text)
	}
	if msg.Markdown.Title == "" {
		t.Error("markdown reply needs a title")
	}
}

func TestReply_DeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		w.Write([]byte("webhook expired"))
	}))
	defer srv.Close()

	rep := NewWebhookReplier(srv.Client(), testLogger())
	err := rep.Reply(context.Background(), srv.URL, "hi")
	var delErr *domain.DeliveryError
	if !errors.As(err, &delErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if delErr.Status != http.StatusGone {
		t.Errorf("status = %d", delErr.Status)
	}
}
