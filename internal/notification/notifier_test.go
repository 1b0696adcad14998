package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleet-service/pkg/config"

	"go.uber.org/zap"
)

func TestSendDeliversPayload(t *testing.T) {
	var got struct {
		Token    string            `json:"token"`
		Priority string            `json:"priority"`
		Data     map[string]string `json:"data"`
	}
	var auth, contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(&config.NotifyConfig{APIURL: srv.URL, APIToken: "secret", Timeout: time.Second}, zap.NewNop())

	err := n.Send(context.Background(), "device-token", "Ruta asignada", "Detalles",
		map[string]string{"codeRoute": "20250310T080000-A-B"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer secret")
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if got.Token != "device-token" || got.Priority != "high" {
		t.Errorf("payload = %+v", got)
	}
	if got.Data["title"] != "Ruta asignada" || got.Data["body"] != "Detalles" {
		t.Errorf("title/body not folded into data: %+v", got.Data)
	}
	if got.Data["codeRoute"] != "20250310T080000-A-B" {
		t.Errorf("data codeRoute = %q", got.Data["codeRoute"])
	}
}

func TestSendRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	n := New(&config.NotifyConfig{APIURL: srv.URL, APIToken: "secret", Timeout: time.Second}, zap.NewNop())

	if err := n.Send(context.Background(), "t", "a", "b", nil); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSendUnconfigured(t *testing.T) {
	n := New(&config.NotifyConfig{Timeout: time.Second}, zap.NewNop())

	err := n.Send(context.Background(), "t", "a", "b", nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}
