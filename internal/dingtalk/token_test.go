package dingtalk

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func tokenServer(t *testing.T, calls *atomic.Int64, token string, expireIn int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != accessTokenPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req accessTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode token request: %v", err)
		}
		if req.AppKey == "" || req.AppSecret == "" {
			t.Error("token request missing appKey/appSecret")
		}
		calls.Add(1)
		json.NewEncoder(w).Encode(accessTokenResponse{AccessToken: token, ExpireIn: expireIn})
	}))
}

func TestToken_CachesUntilMargin(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls, "tok-1", 7200)
	defer srv.Close()

	tc := NewTokenCache(srv.URL, srv.Client(), testLogger())
	current := time.Unix(1700000000, 0)
	tc.now = func() time.Time { return current }

	ctx := context.Background()
	got, err := tc.Token(ctx, "client-a", "secret")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "tok-1" {
		t.Fatalf("token = %q", got)
	}

	// Second call inside expireIn - margin: no network call.
	current = current.Add(time.Hour)
	if _, err := tc.Token(ctx, "client-a", "secret"); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("exchange calls = %d, want 1", calls.Load())
	}

	// Past expireIn - 5min: refresh.
	current = current.Add(57 * time.Minute) // 1h57m total, margin crossed at 1h55m
	if _, err := tc.Token(ctx, "client-a", "secret"); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("exchange calls = %d, want 2", calls.Load())
	}
}

func TestToken_PerClientKeying(t *testing.T) {
	var calls atomic.Int64
	srv := tokenServer(t, &calls, "tok", 7200)
	defer srv.Close()

	tc := NewTokenCache(srv.URL, srv.Client(), testLogger())
	ctx := context.Background()
	tc.Token(ctx, "client-a", "s")
	tc.Token(ctx, "client-b", "s")
	if calls.Load() != 2 {
		t.Fatalf("exchange calls = %d, want 2 (one per clientId)", calls.Load())
	}
}

func TestToken_AuthErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":"Forbidden.AccessDenied"}`))
	}))
	defer srv.Close()

	tc := NewTokenCache(srv.URL, srv.Client(), testLogger())
	_, err := tc.Token(context.Background(), "client-a", "bad")
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Status != http.StatusForbidden {
		t.Errorf("status = %d", authErr.Status)
	}
	if authErr.Body == "" {
		t.Error("error should carry the response body")
	}
}
