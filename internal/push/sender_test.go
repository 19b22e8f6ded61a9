package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSender_Send(t *testing.T) {
	var got Message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"status":"ok","id":"XXXX-1"}}`)) //nolint:errcheck // test server
	}))
	defer srv.Close()

	sender := NewSender(Config{URL: srv.URL, AccessToken: "secret", Timeout: time.Second})
	msg := Message{
		To:    "ExponentPushToken[abc]",
		Sound: "default",
		Title: "Alarma Activada",
		Body:  "cuerpo",
		Data:  map[string]any{"screen": "Dashboard"},
	}
	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got.To != msg.To || got.Title != msg.Title || got.Sound != "default" {
		t.Errorf("received %+v, want %+v", got, msg)
	}
	if got.Data["screen"] != "Dashboard" {
		t.Errorf("data.screen = %v, want Dashboard", got.Data["screen"])
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", auth)
	}
}

func TestSender_ErrorTicket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"status":"error","message":"not registered","details":{"error":"DeviceNotRegistered"}}}`)) //nolint:errcheck // test server
	}))
	defer srv.Close()

	err := NewSender(Config{URL: srv.URL}).Send(context.Background(), Message{To: "ExponentPushToken[old]"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Send() error = %v, want ErrRejected", err)
	}
}

func TestSender_RequestErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"code":"VALIDATION_ERROR","message":"\"to\" must be a token"}]}`)) //nolint:errcheck // test server
	}))
	defer srv.Close()

	err := NewSender(Config{URL: srv.URL}).Send(context.Background(), Message{To: "bad"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Send() error = %v, want ErrRejected", err)
	}
}

func TestSender_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"status":"ok"}}`)) //nolint:errcheck // test server
	}))
	defer srv.Close()

	sender := NewSender(Config{URL: srv.URL, RetryCount: 2})
	if err := sender.Send(context.Background(), Message{To: "ExponentPushToken[abc]"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestSender_PersistentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewSender(Config{URL: srv.URL}).Send(context.Background(), Message{To: "ExponentPushToken[abc]"})
	if err == nil || errors.Is(err, ErrRejected) {
		t.Fatalf("Send() error = %v, want non-rejection failure", err)
	}
}

func TestSender_NoRecipient(t *testing.T) {
	if err := NewSender(Config{}).Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("Send() error = %v, want ErrNoRecipient", err)
	}
}
