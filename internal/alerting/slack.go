package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const slackAPIURL = "https://slack.com/api/chat.postMessage"

// Messenger delivers a formatted message to a channel.
type Messenger interface {
	PostMessage(ctx context.Context, channel, text, color string) error
}

// SlackMessenger posts via the bot-token chat API when a token is configured,
// otherwise falls back to an incoming webhook carrying {channel, text}.
type SlackMessenger struct {
	botToken   string
	webhookURL string
	apiURL     string
	client     *http.Client
}

func NewSlackMessenger(botToken, webhookURL string) *SlackMessenger {
	return &SlackMessenger{
		botToken:   botToken,
		webhookURL: webhookURL,
		apiURL:     slackAPIURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether any delivery path is available.
func (s *SlackMessenger) Configured() bool {
	return s.botToken != "" || s.webhookURL != ""
}

func (s *SlackMessenger) PostMessage(ctx context.Context, channel, text, color string) error {
	if s.botToken != "" {
		return s.postBotMessage(ctx, channel, text, color)
	}
	if s.webhookURL != "" {
		return s.postWebhook(ctx, channel, text)
	}
	return fmt.Errorf("no slack configuration: neither bot token nor webhook URL set")
}

func (s *SlackMessenger) postBotMessage(ctx context.Context, channel, text, color string) error {
	payload := map[string]interface{}{
		"channel": channel,
		"text":    text,
	}
	if color != "" {
		payload["attachments"] = []map[string]interface{}{
			{"color": color, "text": text},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.botToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack API returned status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func (s *SlackMessenger) postWebhook(ctx context.Context, channel, text string) error {
	body, err := json.Marshal(map[string]string{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
