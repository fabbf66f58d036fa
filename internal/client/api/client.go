package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iudanet/petalsync/pkg/api"
)

// DefaultTimeout ограничивает один HTTP запрос, чтобы зависший запрос не останавливал опрос
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotModified означает, что на сервере нет изменений после курсора
	ErrNotModified = errors.New("no changes since cursor")
	// ErrInvalidCursor сервер отклонил курсор (400 на GET /admin/pull)
	ErrInvalidCursor = errors.New("cursor rejected by server")
)

// StatusError ответ сервера с кодом, отличным от 200
type StatusError struct {
	Message string // поле error из JSON тела, если есть
	Body    string
	Code    int
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Body)
}

// ClientAPI определяет операции HTTP endpoint синхронизации
type ClientAPI interface {
	// Push отправляет снимок ключей (POST /sync)
	Push(ctx context.Context, snapshot api.Snapshot) (*api.PushResponse, error)

	// Snapshot получает полный снимок (GET /sync)
	Snapshot(ctx context.Context) (api.Snapshot, error)

	// PullSince получает изменения после курсора (GET /admin/pull?since=)
	// Возвращает ErrNotModified если изменений нет
	PullSince(ctx context.Context, since string) (*api.PullResponse, error)
}

// Client представляет HTTP клиент для взаимодействия с сервером синхронизации
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

var _ ClientAPI = (*Client)(nil)

// Option настраивает Client
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Push отправляет снимок ключей на сервер
func (c *Client) Push(ctx context.Context, snapshot api.Snapshot) (*api.PushResponse, error) {
	var resp api.PushResponse
	if err := c.doRequest(ctx, http.MethodPost, "/sync", snapshot, &resp); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return &resp, nil
}

// Snapshot получает полный снимок всех ключей
func (c *Client) Snapshot(ctx context.Context) (api.Snapshot, error) {
	var resp api.Snapshot
	if err := c.doRequest(ctx, http.MethodGet, "/sync", nil, &resp); err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	if resp == nil {
		resp = api.Snapshot{}
	}
	return resp, nil
}

// PullSince получает изменения после курсора
func (c *Client) PullSince(ctx context.Context, since string) (*api.PullResponse, error) {
	path := "/admin/pull"
	if since != "" {
		path += "?since=" + url.QueryEscape(since)
	}

	var resp api.PullResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if errors.Is(err, ErrNotModified) {
			return nil, ErrNotModified
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusBadRequest && since != "" {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
		}
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Сервер сообщает об отсутствии изменений кодом 304 (или 204 без тела)
	if resp.StatusCode == http.StatusNotModified || resp.StatusCode == http.StatusNoContent {
		return ErrNotModified
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			statusErr.Message = errResp.Error
		}
		return statusErr
	}

	// Подтверждение может прийти с пустым телом
	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
