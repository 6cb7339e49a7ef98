package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/caller"
)

// Default configuration values.
const (
	defaultBaseURL     = "https://discord.com/api/v10"
	defaultHTTPTimeout = 15 * time.Second
	userAgent          = "uvd-coordinator (https://github.com/llubimov/discord-bot-uvd-sub000, 1.0)"
)

// Client — HTTP-клиент платформы.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	BaseURL string        // адрес API (default: https://discord.com/api/v10)
	Token   string        // токен бота
	Timeout time.Duration // таймаут одного запроса (default: 15s)

	// HTTPClient (опционально, для тестов)
	HTTPClient *http.Client

	// Logger
	Logger *slog.Logger
}

// NewClient создаёт клиент платформы.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger.With("component", "platform"),
	}
}

// GrantRole выдаёт роль участнику.
func (c *Client) GrantRole(ctx context.Context, guildID, userID, roleID int64, reason string) error {
	path := fmt.Sprintf("/guilds/%d/members/%d/roles/%d", guildID, userID, roleID)
	return c.do(ctx, http.MethodPut, path, nil, reason, nil)
}

// RevokeRole снимает роль с участника.
func (c *Client) RevokeRole(ctx context.Context, guildID, userID, roleID int64, reason string) error {
	path := fmt.Sprintf("/guilds/%d/members/%d/roles/%d", guildID, userID, roleID)
	return c.do(ctx, http.MethodDelete, path, nil, reason, nil)
}

// messageResponse — часть объекта сообщения, которая нам нужна.
type messageResponse struct {
	ID        int64 `json:"id,string"`
	ChannelID int64 `json:"channel_id,string"`
}

// SendMessage отправляет сообщение в канал.
func (c *Client) SendMessage(ctx context.Context, channelID int64, content string) (int64, error) {
	var msg messageResponse
	path := fmt.Sprintf("/channels/%d/messages", channelID)
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"content": content}, "", &msg); err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// EditMessage заменяет текст сообщения.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID int64, content string) error {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	return c.do(ctx, http.MethodPatch, path, map[string]any{"content": content}, "", nil)
}

// DeleteMessage удаляет сообщение.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// Exists проверяет наличие сообщения. 404 — это ответ, а не ошибка.
func (c *Client) Exists(ctx context.Context, channelID, messageID int64) (Presence, error) {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	err := c.do(ctx, http.MethodGet, path, nil, "", nil)
	switch {
	case err == nil:
		return PresenceFound, nil
	case errors.Is(err, caller.ErrNotFound):
		return PresenceNotFound, nil
	default:
		return PresenceUnknown, err
	}
}

// do выполняет один запрос и классифицирует ответ.
func (c *Client) do(ctx context.Context, method, path string, body any, reason string, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal body: %v", ErrRequest, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}

	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bot "+c.token)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if reason != "" {
		req.Header.Set("X-Audit-Log-Reason", url.PathEscape(reason))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Сетевые ошибки и таймауты клиента считаем временными
		return fmt.Errorf("%w: %s %s: %v", caller.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", caller.ErrTransient, err)
	}

	if resp.StatusCode >= 400 {
		return classifyResponse(resp, respBody, method, path)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
	}

	c.logger.Debug("platform request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
	)
	return nil
}

// rateLimitBody — тело ответа 429.
type rateLimitBody struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}

// classifyResponse переводит HTTP-ошибку в класс caller.
func classifyResponse(resp *http.Response, body []byte, method, path string) error {
	msg := fmt.Sprintf("HTTP %d %s %s: %s", resp.StatusCode, method, path, truncate(string(body), 200))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return parseRateLimit(resp, body)
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", caller.ErrPermissionDenied, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", caller.ErrNotFound, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", caller.ErrTransient, msg)
	default:
		return fmt.Errorf("%w: %s", caller.ErrUnexpected, msg)
	}
}

// parseRateLimit извлекает подсказку ожидания: сначала из JSON, затем из заголовка.
func parseRateLimit(resp *http.Response, body []byte) *caller.RateLimitError {
	rl := &caller.RateLimitError{}

	var parsed rateLimitBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		rl.Global = parsed.Global
		if parsed.RetryAfter > 0 {
			rl.RetryAfter = time.Duration(parsed.RetryAfter * float64(time.Second))
			return rl
		}
	}

	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.ParseFloat(h, 64); err == nil && secs > 0 {
			rl.RetryAfter = time.Duration(secs * float64(time.Second))
		}
	}
	if resp.Header.Get("X-RateLimit-Global") == "true" {
		rl.Global = true
	}
	return rl
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
