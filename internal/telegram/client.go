// internal/telegram/client.go
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const apiBase = "https://api.telegram.org/bot"

// Sender исходящий канал к пользователю. Ошибка доставки не фатальна —
// вызывающие продолжают обработку остальных получателей.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, markup interface{}) error
}

// Update входящее обновление Bot API
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID int64 `json:"id"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// Client минимальный клиент Telegram Bot API: long polling + sendMessage
type Client struct {
	token  string
	http   *http.Client
	offset int64
}

func NewClient(token string) *Client {
	return &Client{
		token: token,
		http:  &http.Client{Timeout: 65 * time.Second},
	}
}

type apiResponse struct {
	Ok          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+c.token+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if !api.Ok {
		return fmt.Errorf("telegram %s: %s", method, api.Description)
	}
	if result != nil {
		return json.Unmarshal(api.Result, result)
	}
	return nil
}

// Send отправляет текст с опциональной reply-клавиатурой
func (c *Client) Send(ctx context.Context, chatID int64, text string, markup interface{}) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// GetUpdates long poll за новыми сообщениями; сдвигает offset сам
func (c *Client) GetUpdates(ctx context.Context) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":          c.offset,
		"timeout":         50,
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	for _, u := range updates {
		if u.UpdateID >= c.offset {
			c.offset = u.UpdateID + 1
		}
	}
	return updates, nil
}

// DropPendingUpdates сбрасывает накопившиеся за простой сообщения
func (c *Client) DropPendingUpdates(ctx context.Context) error {
	payload := map[string]interface{}{"offset": -1, "timeout": 0}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return err
	}
	for _, u := range updates {
		if u.UpdateID >= c.offset {
			c.offset = u.UpdateID + 1
		}
	}
	return nil
}
