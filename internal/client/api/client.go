package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/vaultsync/pkg/api"
)

// DefaultTimeout таймаут одного HTTP запроса
const DefaultTimeout = 30 * time.Second

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient подменяет HTTP клиент (например, клиент httptest сервера)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout задает таймаут запросов
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Authorization не переносится через редирект автоматически
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

// Register регистрирует нового пользователя и устройство
func (c *Client) Register(ctx context.Context, req api.AuthRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/auth/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя.
// Возвращает *MFARequiredError, если нужен код второго фактора.
func (c *Client) Login(ctx context.Context, req api.AuthRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новую пару токенов
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	req := api.RefreshRequest{RefreshToken: refreshToken}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", "", req, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Logout отзывает refresh token на сервере
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	req := api.LogoutRequest{RefreshToken: refreshToken}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/auth/logout", "", req, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// MFAEnroll запрашивает новый TOTP секрет
func (c *Client) MFAEnroll(ctx context.Context, accessToken string) (*api.MFAEnrollResponse, error) {
	var resp api.MFAEnrollResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/auth/mfa/enroll", accessToken, struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("mfa enroll request failed: %w", err)
	}
	return &resp, nil
}

// MFAConfirm включает второй фактор кодом из приложения
func (c *Client) MFAConfirm(ctx context.Context, accessToken, code string) error {
	req := api.MFAConfirmRequest{Code: code}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/auth/mfa/confirm", accessToken, req, nil); err != nil {
		return fmt.Errorf("mfa confirm request failed: %w", err)
	}
	return nil
}

// GetEnvelope возвращает конверт ключа аккаунта или nil, если его нет
func (c *Client) GetEnvelope(ctx context.Context, accessToken string) (*api.KeyEnvelope, error) {
	var resp api.EnvelopeResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v1/keys/envelope", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("get envelope request failed: %w", err)
	}
	return resp.Envelope, nil
}

// PutEnvelope заменяет конверт ключа и возвращает сохраненную копию
func (c *Client) PutEnvelope(ctx context.Context, accessToken string, env *api.KeyEnvelope) (*api.KeyEnvelope, error) {
	var resp api.EnvelopeResponse
	req := api.EnvelopeRequest{Envelope: env}
	if err := c.doRequest(ctx, http.MethodPut, "/v1/keys/envelope", accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("put envelope request failed: %w", err)
	}
	return resp.Envelope, nil
}

// Push отправляет пакет локальных изменений
func (c *Client) Push(ctx context.Context, accessToken string, req *api.PushRequest) (*api.PushResponse, error) {
	var resp api.PushResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/sync/push", accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return &resp, nil
}

// Pull запрашивает изменения с seq > cursor
func (c *Client) Pull(ctx context.Context, accessToken string, cursor int64, limit int) (*api.PullResponse, error) {
	q := url.Values{}
	q.Set("cursor", strconv.FormatInt(cursor, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp api.PullResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v1/sync/pull?"+q.Encode(), accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	return &resp, nil
}

// ListDevices возвращает устройства аккаунта
func (c *Client) ListDevices(ctx context.Context, accessToken string) ([]api.Device, error) {
	var resp api.DevicesResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v1/devices", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("list devices request failed: %w", err)
	}
	return resp.Devices, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос и переводит ответ в типизированную ошибку
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, body, result any) error {
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
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	op := method + " " + stripQuery(path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusToError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func statusToError(code int, body []byte) error {
	var errResp api.ErrorResponse
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &errResp); err == nil {
		message = errResp.Message
		if message == "" {
			message = errResp.Error
		}
	}

	if code == http.StatusUnauthorized {
		if errResp.MFARequired {
			return &MFARequiredError{Message: message}
		}
		if message == "" {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	}
	return &StatusError{Code: code, Message: message}
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
