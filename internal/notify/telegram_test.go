package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTelegramSend(t *testing.T) {
	var gotPath, gotChatID, gotText, gotParseMode string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		gotPath = r.URL.Path
		gotChatID = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		gotParseMode = r.FormValue("parse_mode")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tg := NewTelegram("test-token", "12345", 5*time.Second, nil)
	tg.baseURL = server.URL

	if err := tg.Send(context.Background(), "relay switched on"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("request path = %q, want %q", gotPath, "/bottest-token/sendMessage")
	}
	if gotChatID != "12345" {
		t.Errorf("chat_id = %q, want %q", gotChatID, "12345")
	}
	if gotText != "relay switched on" {
		t.Errorf("text = %q, want %q", gotText, "relay switched on")
	}
	if gotParseMode != "HTML" {
		t.Errorf("parse_mode = %q, want %q", gotParseMode, "HTML")
	}
}

func TestTelegramSend_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	tg := NewTelegram("bad-token", "12345", 5*time.Second, nil)
	tg.baseURL = server.URL

	err := tg.Send(context.Background(), "hello")
	if !errors.Is(err, ErrSendFailed) {
		t.Errorf("Send() error = %v, want ErrSendFailed", err)
	}
}

func TestTelegramSend_MissingCredentialsIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request sent despite missing credentials")
	}))
	defer server.Close()

	tg := NewTelegram("", "", 5*time.Second, nil)
	tg.baseURL = server.URL

	if err := tg.Send(context.Background(), "hello"); err != nil {
		t.Errorf("Send() error = %v, want nil for unconfigured notifier", err)
	}
}

func TestTelegramSend_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	tg := NewTelegram("token", "12345", 5*time.Second, nil)
	tg.baseURL = server.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tg.Send(ctx, "hello"); err == nil {
		t.Error("Send() error = nil, want context error")
	}
}
