// Пакет notifyapi — HTTP-клиент к Notification API (реестр сервисов
// организаций). Авторизация через API-ключ (заголовок X-API-Key).
// Операции: GetService, UpdateService, UploadServiceLogo, UploadOrganizationLogo.
package notifyapi

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
	"strings"
	"time"

	"github.com/arturkryukov/notifyhub/portal-module/internal/domain/model"
)

// ErrNotFound возвращается, когда Notification API отвечает 404:
// сервис с таким идентификатором не зарегистрирован.
var ErrNotFound = errors.New("сервис не найден в Notification API")

// serviceRepresentation — запись сервиса в wire-формате Notification API.
type serviceRepresentation struct {
	ServiceID               string                  `json:"service_id,omitempty"`
	ServiceName             string                  `json:"service_name"`
	DepartmentName          string                  `json:"department_name"`
	OrganizationName        string                  `json:"organization_name"`
	OrganizationFiscalCode  string                  `json:"organization_fiscal_code"`
	IsVisible               bool                    `json:"is_visible"`
	AuthorizedCIDRs         []string                `json:"authorized_cidrs,omitempty"`
	AuthorizedRecipients    []string                `json:"authorized_recipients,omitempty"`
	MaxAllowedPaymentAmount int64                   `json:"max_allowed_payment_amount,omitempty"`
	RequireSecureChannels   bool                    `json:"require_secure_channels"`
	Version                 int                     `json:"version,omitempty"`
	Metadata                *metadataRepresentation `json:"service_metadata,omitempty"`
}

// metadataRepresentation — вложенные метаданные сервиса.
type metadataRepresentation struct {
	Description string `json:"description,omitempty"`
	WebURL      string `json:"web_url,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Scope       string `json:"scope"`
}

// logoPayload — тело запроса загрузки логотипа.
type logoPayload struct {
	Logo string `json:"logo"` // PNG в base64
}

// toModel конвертирует wire-представление в доменную модель.
func (r *serviceRepresentation) toModel() *model.Service {
	svc := &model.Service{
		ServiceID:               r.ServiceID,
		ServiceName:             r.ServiceName,
		DepartmentName:          r.DepartmentName,
		OrganizationName:        r.OrganizationName,
		OrganizationFiscalCode:  r.OrganizationFiscalCode,
		IsVisible:               r.IsVisible,
		AuthorizedCIDRs:         r.AuthorizedCIDRs,
		AuthorizedRecipients:    r.AuthorizedRecipients,
		MaxAllowedPaymentAmount: r.MaxAllowedPaymentAmount,
		RequireSecureChannels:   r.RequireSecureChannels,
		Version:                 r.Version,
	}
	if r.Metadata != nil {
		svc.Metadata = &model.ServiceMetadata{
			Description: r.Metadata.Description,
			WebURL:      r.Metadata.WebURL,
			Email:       r.Metadata.Email,
			Phone:       r.Metadata.Phone,
			Scope:       r.Metadata.Scope,
		}
	}
	return svc
}

// fromModel конвертирует доменную модель в wire-представление.
func fromModel(svc *model.Service) *serviceRepresentation {
	rep := &serviceRepresentation{
		ServiceID:               svc.ServiceID,
		ServiceName:             svc.ServiceName,
		DepartmentName:          svc.DepartmentName,
		OrganizationName:        svc.OrganizationName,
		OrganizationFiscalCode:  svc.OrganizationFiscalCode,
		IsVisible:               svc.IsVisible,
		AuthorizedCIDRs:         svc.AuthorizedCIDRs,
		AuthorizedRecipients:    svc.AuthorizedRecipients,
		MaxAllowedPaymentAmount: svc.MaxAllowedPaymentAmount,
		RequireSecureChannels:   svc.RequireSecureChannels,
		Version:                 svc.Version,
	}
	if svc.Metadata != nil {
		rep.Metadata = &metadataRepresentation{
			Description: svc.Metadata.Description,
			WebURL:      svc.Metadata.WebURL,
			Email:       svc.Metadata.Email,
			Phone:       svc.Metadata.Phone,
			Scope:       svc.Metadata.Scope,
		}
	}
	return rep
}

// Client — HTTP-клиент к Notification API.
type Client struct {
	baseURL    string // Базовый URL Notification API (без trailing slash)
	apiKey     string // API-ключ модуля
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент к Notification API.
// httpClient — HTTP-клиент (может содержать TLS конфигурацию).
func New(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    normalizeURL(baseURL),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "notifyapi_client")),
	}
}

// do выполняет HTTP-запрос с заголовком X-API-Key.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// GetService возвращает запись сервиса по идентификатору.
// GET /services/{serviceId}. 404 транслируется в ErrNotFound.
func (c *Client) GetService(ctx context.Context, serviceID string) (*model.Service, error) {
	resp, err := c.do(ctx, http.MethodGet, "/services/"+url.PathEscape(serviceID), nil)
	if err != nil {
		return nil, fmt.Errorf("запрос GetService: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("GetService %s: %w", serviceID, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Notification API вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var rep serviceRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return nil, fmt.Errorf("декодирование GetService: %w", err)
	}

	return rep.toModel(), nil
}

// UpdateService отправляет полную обновлённую запись сервиса.
// PUT /services/{serviceId}. Возвращает запись, сохранённую downstream.
func (c *Client) UpdateService(ctx context.Context, svc *model.Service) (*model.Service, error) {
	resp, err := c.do(ctx, http.MethodPut, "/services/"+url.PathEscape(svc.ServiceID), fromModel(svc))
	if err != nil {
		return nil, fmt.Errorf("запрос UpdateService: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Notification API вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var rep serviceRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return nil, fmt.Errorf("декодирование UpdateService: %w", err)
	}

	return rep.toModel(), nil
}

// UploadServiceLogo загружает логотип сервиса (PNG в base64).
// PUT /services/{serviceId}/logo. Успех — строго статус 201.
func (c *Client) UploadServiceLogo(ctx context.Context, serviceID, logoBase64 string) error {
	resp, err := c.do(ctx, http.MethodPut, "/services/"+url.PathEscape(serviceID)+"/logo", logoPayload{Logo: logoBase64})
	if err != nil {
		return fmt.Errorf("запрос UploadServiceLogo: %w", err)
	}
	defer resp.Body.Close()

	// Любой статус кроме 201 — отказ, включая прочие 2xx
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Notification API вернул статус %d вместо 201: %s", resp.StatusCode, string(body))
	}

	return nil
}

// UploadOrganizationLogo загружает логотип организации (PNG в base64).
// PUT /organizations/{fiscalCode}/logo. Успех — строго статус 201.
func (c *Client) UploadOrganizationLogo(ctx context.Context, fiscalCode, logoBase64 string) error {
	resp, err := c.do(ctx, http.MethodPut, "/organizations/"+url.PathEscape(fiscalCode)+"/logo", logoPayload{Logo: logoBase64})
	if err != nil {
		return fmt.Errorf("запрос UploadOrganizationLogo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Notification API вернул статус %d вместо 201: %s", resp.StatusCode, string(body))
	}

	return nil
}

// CheckReady проверяет доступность Notification API.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return "fail", fmt.Sprintf("Notification API недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("Notification API вернул статус %d", resp.StatusCode)
	}

	return "ok", "Notification API доступен"
}

// normalizeURL убирает trailing slash из URL.
func normalizeURL(rawURL string) string {
	return strings.TrimRight(rawURL, "/")
}
