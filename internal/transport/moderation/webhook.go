package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Webhook delivers publish-request notifications to the moderation service.
type Webhook struct {
	url    string
	token  string
	client *http.Client
}

// Config holds the moderation webhook settings.
type Config struct {
	URL        string
	Token      string
	TimeoutSec int
}

// NewWebhook creates a moderation webhook client.
func NewWebhook(cfg *Config) *Webhook {
	return &Webhook{
		url:   cfg.URL,
		token: cfg.Token,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

type publishRequestPayload struct {
	UserID string `json:"user_id"`
	DeckID string `json:"deck_id"`
}

// NotifyPublishRequest posts the pending publish request to the moderation
// endpoint. Any non-2xx response is an error.
func (w *Webhook) NotifyPublishRequest(ctx context.Context, userID, deckID string) error {
	body, err := json.Marshal(publishRequestPayload{UserID: userID, DeckID: deckID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
