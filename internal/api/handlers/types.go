// types.go — wire-типы /api/v1 endpoints Portal Module.
// Зеркалируют схемы openapi.yaml; конвертация в доменные модели и обратно.
package handlers

import (
	"encoding/json"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/arturkryukov/notifyhub/portal-module/internal/domain/model"
)

// OptionalBool — булево поле, различающее отсутствие ключа в JSON,
// явный null и заданное значение. UnmarshalJSON вызывается только
// при наличии ключа; явный null приводится к false (правило схемы
// для is_visible: присутствует, но не задано — значит false).
type OptionalBool struct {
	Present bool
	Value   *bool
}

// UnmarshalJSON реализует json.Unmarshaler.
func (b *OptionalBool) UnmarshalJSON(data []byte) error {
	b.Present = true
	if string(data) == "null" {
		v := false
		b.Value = &v
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	b.Value = &v
	return nil
}

// serviceMetadataPayload — метаданные сервиса в wire-формате.
type serviceMetadataPayload struct {
	Description string `json:"description,omitempty"`
	WebURL      string `json:"web_url,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

func (m *serviceMetadataPayload) toModel() *model.ServiceMetadata {
	return &model.ServiceMetadata{
		Description: m.Description,
		WebURL:      m.WebURL,
		Email:       m.Email,
		Phone:       m.Phone,
		Scope:       m.Scope,
	}
}

func metadataFromModel(m *model.ServiceMetadata) *serviceMetadataPayload {
	if m == nil {
		return nil
	}
	return &serviceMetadataPayload{
		Description: m.Description,
		WebURL:      m.WebURL,
		Email:       m.Email,
		Phone:       m.Phone,
		Scope:       m.Scope,
	}
}

// servicePayload — тело PUT /api/v1/services/{serviceId}.
// Все поля опциональны: отсутствующее поле не меняет запись.
type servicePayload struct {
	ServiceName             *string                 `json:"service_name"`
	DepartmentName          *string                 `json:"department_name"`
	OrganizationName        *string                 `json:"organization_name"`
	OrganizationFiscalCode  *string                 `json:"organization_fiscal_code"`
	IsVisible               OptionalBool            `json:"is_visible"`
	AuthorizedCIDRs         *[]string               `json:"authorized_cidrs"`
	AuthorizedRecipients    *[]string               `json:"authorized_recipients"`
	MaxAllowedPaymentAmount *int64                  `json:"max_allowed_payment_amount"`
	RequireSecureChannels   *bool                   `json:"require_secure_channels"`
	Metadata                *serviceMetadataPayload `json:"service_metadata"`
}

// toPatch конвертирует wire-payload в доменный патч.
func (p *servicePayload) toPatch() model.ServicePatch {
	patch := model.ServicePatch{
		ServiceName:             p.ServiceName,
		DepartmentName:          p.DepartmentName,
		OrganizationName:        p.OrganizationName,
		OrganizationFiscalCode:  p.OrganizationFiscalCode,
		AuthorizedCIDRs:         p.AuthorizedCIDRs,
		AuthorizedRecipients:    p.AuthorizedRecipients,
		MaxAllowedPaymentAmount: p.MaxAllowedPaymentAmount,
		RequireSecureChannels:   p.RequireSecureChannels,
	}
	if p.IsVisible.Present {
		patch.IsVisible = p.IsVisible.Value
	}
	if p.Metadata != nil {
		patch.Metadata = p.Metadata.toModel()
	}
	return patch
}

// serviceResponse — представление сервиса в ответах GET/PUT.
type serviceResponse struct {
	ServiceID               string                  `json:"service_id"`
	ServiceName             string                  `json:"service_name"`
	DepartmentName          string                  `json:"department_name"`
	OrganizationName        string                  `json:"organization_name"`
	OrganizationFiscalCode  string                  `json:"organization_fiscal_code"`
	IsVisible               bool                    `json:"is_visible"`
	AuthorizedCIDRs         []string                `json:"authorized_cidrs"`
	AuthorizedRecipients    []string                `json:"authorized_recipients"`
	MaxAllowedPaymentAmount int64                   `json:"max_allowed_payment_amount"`
	RequireSecureChannels   bool                    `json:"require_secure_channels"`
	Version                 int                     `json:"version"`
	Metadata                *serviceMetadataPayload `json:"service_metadata,omitempty"`
}

// mapService конвертирует доменную модель в wire-формат.
func mapService(svc *model.Service) serviceResponse {
	return serviceResponse{
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
		Metadata:                metadataFromModel(svc.Metadata),
	}
}

// logoUploadPayload — тело PUT логотипа: изображение в base64.
type logoUploadPayload struct {
	Logo string `json:"logo"`
}

// userResponse — представление пользователя в ответе GET /api/v1/me.
type userResponse struct {
	ID        string              `json:"id"`
	Email     openapi_types.Email `json:"email"`
	FirstName string              `json:"first_name,omitempty"`
	LastName  string              `json:"last_name,omitempty"`
	Enabled   bool                `json:"enabled"`
	Groups    []string            `json:"groups"`
	Role      string              `json:"role"`
	CreatedAt time.Time           `json:"created_at"`
}

// mapUser конвертирует доменную модель пользователя в wire-формат.
func mapUser(user *model.PortalUser, role string) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     openapi_types.Email(user.Email),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Enabled:   user.Enabled,
		Groups:    user.Groups,
		Role:      role,
		CreatedAt: user.CreatedAt,
	}
}
