// client.go — HTTP-клиент к API Management backend (реестр пользователей
// и подписок портала). Реализует автоматическое получение токена через
// Client Credentials flow, кэширование токена (обновление за 30s до expiration).
// Операции: GetUserByEmail, GetSubscription, GetUserSubscription.
package apim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/arturkryukov/notifyhub/portal-module/internal/domain/model"
)

// ErrNotFound возвращается, когда API Management отвечает 404:
// пользователь или подписка отсутствуют.
var ErrNotFound = errors.New("ресурс не найден в API Management")

// Client — HTTP-клиент к API Management backend.
type Client struct {
	baseURL      string // Базовый URL API Management (без trailing slash)
	clientID     string // Client ID для Client Credentials flow
	clientSecret string // Client Secret

	httpClient *http.Client
	logger     *slog.Logger

	// Кэш токена доступа
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New создаёт клиент к API Management backend.
// baseURL — базовый URL (например, https://apim.notifyhub.lan).
// clientID, clientSecret — credentials для Client Credentials flow.
// httpClient — HTTP-клиент (может содержать TLS конфигурацию).
func New(baseURL, clientID, clientSecret string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "apim_client")),
	}
}

// --- Аутентификация ---

// tokenEndpoint возвращает URL endpoint'а получения токена.
func (c *Client) tokenEndpoint() string {
	return c.baseURL + "/auth/token"
}

// apiBaseURL возвращает базовый URL management API.
func (c *Client) apiBaseURL() string {
	return c.baseURL + "/v1"
}

// getToken возвращает актуальный access token, обновляя при необходимости.
// Токен обновляется за 30 секунд до истечения.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Проверяем кэш: если токен валиден ещё 30 секунд — используем его
	if c.accessToken != "" && time.Now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	// Запрашиваем новый токен через Client Credentials flow
	token, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.logger.Debug("Токен API Management обновлён",
		slog.Time("expires_at", c.tokenExpiry),
	)

	return c.accessToken, nil
}

// requestToken выполняет Client Credentials flow.
func (c *Client) requestToken(ctx context.Context) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос токена API Management: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API Management вернул статус %d при запросе токена: %s", resp.StatusCode, string(body))
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование токена API Management: %w", err)
	}

	return &token, nil
}

// --- HTTP helpers ---

// doAuthorized выполняет HTTP-запрос к management API с авторизацией.
func (c *Client) doAuthorized(ctx context.Context, method, path string) (*http.Response, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение токена: %w", err)
	}

	reqURL := c.apiBaseURL() + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	return c.httpClient.Do(req)
}

// decodeResponse декодирует JSON ответ в target.
// 404 транслируется в ErrNotFound, остальные не-2xx — в ошибку со статусом.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API Management вернул статус %d: %s", resp.StatusCode, string(body))
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("декодирование ответа API Management: %w", err)
		}
	}

	return nil
}

// --- Users API ---

// GetUserByEmail возвращает пользователя портала по его основному email.
// Если пользователь не зарегистрирован в API Management — ErrNotFound.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*model.PortalUser, error) {
	path := "/users?email=" + url.QueryEscape(email)

	resp, err := c.doAuthorized(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var users []userRepresentation
	if err := decodeResponse(resp, &users); err != nil {
		return nil, fmt.Errorf("GetUserByEmail: %w", err)
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("GetUserByEmail: %w", ErrNotFound)
	}

	return users[0].toModel(), nil
}

// --- Subscriptions API ---

// GetSubscription возвращает подписку по идентификатору сервиса без
// фильтра по владельцу (admin-путь: сам идентификатор считается правом).
func (c *Client) GetSubscription(ctx context.Context, serviceID string) (*model.Subscription, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(serviceID))
	if err != nil {
		return nil, err
	}

	var sub subscriptionRepresentation
	if err := decodeResponse(resp, &sub); err != nil {
		return nil, fmt.Errorf("GetSubscription: %w", err)
	}

	return sub.toModel(), nil
}

// GetUserSubscription возвращает подписку пары (сервис, пользователь).
// Отсутствие подписки означает, что пользователь не владеет сервисом,
// и возвращается как ErrNotFound.
func (c *Client) GetUserSubscription(ctx context.Context, serviceID, userID string) (*model.Subscription, error) {
	path := "/users/" + url.PathEscape(userID) + "/subscriptions/" + url.PathEscape(serviceID)

	resp, err := c.doAuthorized(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var sub subscriptionRepresentation
	if err := decodeResponse(resp, &sub); err != nil {
		return nil, fmt.Errorf("GetUserSubscription: %w", err)
	}

	return sub.toModel(), nil
}

// --- Readiness checker ---

// CheckReady проверяет доступность API Management через status endpoint.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL()+"/status", nil)
	if err != nil {
		return "fail", fmt.Sprintf("создание запроса статуса: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("API Management недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("API Management вернул статус %d", resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "degraded", fmt.Sprintf("некорректный ответ статуса: %v", err)
	}

	if status.Status != "ok" {
		return "degraded", fmt.Sprintf("API Management сообщает статус %q", status.Status)
	}

	return "ok", "API Management доступен"
}
