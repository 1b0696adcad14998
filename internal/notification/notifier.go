// Package notification delivers best-effort data pushes to driver
// devices through the configured push API.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fleet-service/pkg/config"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when the push API settings are missing.
// Callers treat delivery as best effort, so this is logged, not fatal.
var ErrNotConfigured = errors.New("push API not configured")

// Notifier sends data messages to a single device token.
type Notifier struct {
	apiURL   string
	apiToken string
	client   *http.Client
	log      *zap.Logger
}

// New builds a Notifier from the push settings.
func New(cfg *config.NotifyConfig, log *zap.Logger) *Notifier {
	return &Notifier{
		apiURL:   cfg.APIURL,
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}
}

// Send delivers one high-priority data message. Every data value is sent
// as a string; title and body ride along in the data payload so the
// client renders them itself.
func (n *Notifier) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if n.apiURL == "" || n.apiToken == "" {
		return ErrNotConfigured
	}

	payload := map[string]interface{}{
		"token":    token,
		"priority": "high",
		"data":     buildData(title, body, data),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.apiToken)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		n.log.Error("push API rejected message",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", detail))
		return fmt.Errorf("push API returned status %d", resp.StatusCode)
	}

	return nil
}

func buildData(title, body string, data map[string]string) map[string]string {
	out := make(map[string]string, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	out["title"] = title
	out["body"] = body
	return out
}
