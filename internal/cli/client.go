package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultAPIURL — адрес API uvd-coordinator для локального запуска.
const DefaultAPIURL = "http://localhost:8085"

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// RequestResponse — ожидающая заявка из API.
type RequestResponse struct {
	Key       string         `json:"key"`
	Kind      string         `json:"kind"`
	Phase     string         `json:"phase"`
	GuildID   string         `json:"guild_id,omitempty"`
	ChannelID string         `json:"channel_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Gate      *GateResponse  `json:"gate,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// GateResponse — состояние двухэтапного согласования.
type GateResponse struct {
	ApprovedBySource string `json:"approved_by_source,omitempty"`
	ApprovedByTarget string `json:"approved_by_target,omitempty"`
	BypassSource     bool   `json:"bypass_source"`
}

// SweepResponse — итог сверки из API.
type SweepResponse struct {
	Kind    string   `json:"kind"`
	DryRun  bool     `json:"dry_run"`
	Checked int      `json:"checked"`
	Pruned  int      `json:"pruned"`
	Missing []string `json:"missing"`
	Expired []string `json:"expired"`
	Unknown []string `json:"unknown"`
	Busy    []string `json:"busy"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ошибка, которую вернул сервер.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s: %s", e.Code, e.Message)
}

// Backend — операции, доступные командам CLI.
type Backend interface {
	ListPending(ctx context.Context, kind string) ([]RequestResponse, error)
	Sweep(ctx context.Context, kind string, dryRun bool) (*SweepResponse, error)
}

// --- Client ---

// Client — HTTP-клиент API uvd-coordinator.
//
// Заявками владеет только сервис: CLI не открывает хранилище сам.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute, // сверка обходит все заявки типа
		},
	}
}

// ListPending возвращает ожидающие заявки типа.
func (c *Client) ListPending(ctx context.Context, kind string) ([]RequestResponse, error) {
	params := url.Values{}
	params.Set("kind", kind)

	var items []RequestResponse
	err := c.doData(ctx, http.MethodGet, "/api/v1/requests?"+params.Encode(), nil, &items)
	return items, err
}

// Sweep запускает сверку одного типа на сервере.
func (c *Client) Sweep(ctx context.Context, kind string, dryRun bool) (*SweepResponse, error) {
	body := map[string]any{"kind": kind, "dry_run": dryRun}

	var res SweepResponse
	if err := c.doData(ctx, http.MethodPost, "/api/v1/sweeps", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- HTTP helpers ---

func (c *Client) doData(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if result == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(dr.Data))
	dec.UseNumber()
	return dec.Decode(result)
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var er errorResponse
	if err := json.Unmarshal(data, &er); err != nil || er.Error.Message == "" {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return &APIError{Status: resp.StatusCode, Code: er.Error.Code, Message: er.Error.Message}
}
