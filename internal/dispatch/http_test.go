package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestHTTPDispatcher_DeliversReply(t *testing.T) {
	var got domain.MessageContext
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode message context: %v", err)
		}
		json.NewEncoder(w).Encode(domain.Reply{Text: "answer"})
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, 0, testLogger())
	msg := domain.MessageContext{
		AccountID:  "main",
		SessionKey: "dingtalk:main:conv-1",
		Content:    "question",
	}

	var delivered []domain.Reply
	err := d.Dispatch(context.Background(), msg, func(r domain.Reply) {
		delivered = append(delivered, r)
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got.Content != "question" || got.SessionKey != msg.SessionKey {
		t.Errorf("endpoint received %+v", got)
	}
	if len(delivered) != 1 || delivered[0].Text != "answer" {
		t.Fatalf("delivered = %+v", delivered)
	}
}

func TestHTTPDispatcher_EmptyReplyNotDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.Reply{})
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, 0, testLogger())
	delivered := 0
	err := d.Dispatch(context.Background(), domain.MessageContext{Content: "q"}, func(domain.Reply) {
		delivered++
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if delivered != 0 {
		t.Error("empty reply should not be delivered")
	}
}

func TestHTTPDispatcher_EndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, 0, testLogger())
	err := d.Dispatch(context.Background(), domain.MessageContext{Content: "q"}, func(domain.Reply) {
		t.Error("reply delivered despite endpoint failure")
	})
	if err == nil {
		t.Fatal("expected error from failing endpoint")
	}
}

func TestEchoDispatcher(t *testing.T) {
	var replies []domain.Reply
	err := EchoDispatcher{}.Dispatch(context.Background(), domain.MessageContext{Content: "ping"}, func(r domain.Reply) {
		replies = append(replies, r)
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(replies) != 1 || replies[0].Text != "ping" {
		t.Fatalf("replies = %+v", replies)
	}
}
