// Пакет apim — HTTP-клиент к API Management backend.
// models.go — модели данных API Management.
package apim

import (
	"time"

	"github.com/arturkryukov/notifyhub/portal-module/internal/domain/model"
)

// TokenResponse — ответ на запрос токена через Client Credentials flow.
type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // G117: структура токена OAuth2
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// userRepresentation — пользователь портала в API Management.
type userRepresentation struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Enabled   bool     `json:"enabled"`
	Groups    []string `json:"groups"`
	CreatedAt int64    `json:"createdTimestamp"`
}

// toModel конвертирует представление API Management в доменную модель.
// Timestamp хранится в миллисекундах.
func (u *userRepresentation) toModel() *model.PortalUser {
	return &model.PortalUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Enabled:   u.Enabled,
		Groups:    u.Groups,
		CreatedAt: time.UnixMilli(u.CreatedAt),
	}
}

// subscriptionRepresentation — подписка на сервис в API Management.
type subscriptionRepresentation struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	State     string `json:"state"`
	CreatedAt int64  `json:"createdTimestamp"`
}

// toModel конвертирует представление подписки в доменную модель.
func (s *subscriptionRepresentation) toModel() *model.Subscription {
	return &model.Subscription{
		ID:        s.ID,
		UserID:    s.UserID,
		State:     s.State,
		CreatedAt: time.UnixMilli(s.CreatedAt),
	}
}

// statusResponse — ответ endpoint'а статуса API Management.
type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
