// internal/channels/chat.go
package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	commonhttp "corrtrack-notifier/internal/common/http"
)

// ChatSender delivers via a Telegram-style bot HTTP API. The recipient is
// the chat id stored on the user profile.
type ChatSender struct {
	botToken   string
	baseURL    string
	httpClient *commonhttp.Client
}

type chatMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type chatResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func NewChatSender(botToken, baseURL string) *ChatSender {
	return &ChatSender{
		botToken:   botToken,
		baseURL:    baseURL,
		httpClient: commonhttp.NewClient(30 * time.Second),
	}
}

func (s *ChatSender) Send(ctx context.Context, recipient, subject, body string) error {
	text := body
	if subject != "" {
		text = subject + "\n" + body
	}

	payload, err := json.Marshal(chatMessage{ChatID: recipient, Text: text})
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat send: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("decode chat response (status %d): %w", resp.StatusCode, err)
	}
	if !parsed.OK {
		return fmt.Errorf("chat send rejected: %s", parsed.Description)
	}
	return nil
}
