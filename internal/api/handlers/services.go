// services.go — обработчики /api/v1/services endpoints.
// Чтение и частичное обновление записей сервисов из Notification API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/notifyhub/portal-module/internal/api/errors"
	"github.com/arturkryukov/notifyhub/portal-module/internal/api/middleware"
	"github.com/arturkryukov/notifyhub/portal-module/internal/service"
)

// Wire-сообщения стабильны: клиенты портала матчатся на них.
const (
	msgUserNotFound         = "API user not found"
	msgSubscriptionNotFound = "Subscription not found"
	msgServiceNotFound      = "Service not found"
	msgForbidden            = "You do not have enough permission to complete the operation"
)

// GetService — GET /api/v1/services/{serviceId}.
// Возвращает запись сервиса. Доступ: admin или владелец подписки.
func (h *APIHandler) GetService(w http.ResponseWriter, r *http.Request) {
	email := middleware.EmailFromContext(r.Context())
	serviceID := chi.URLParam(r, "serviceId")

	svc, err := h.services.Get(r.Context(), email, serviceID)
	if err != nil {
		h.writePipelineError(w, "получение сервиса", serviceID, err)
		return
	}

	writeJSON(w, http.StatusOK, mapService(svc))
}

// UpdateService — PUT /api/v1/services/{serviceId}.
// Частичное обновление: заданные поля накладываются на текущую запись.
// Доступ: admin (все поля) или владелец подписки (ограниченный набор полей).
func (h *APIHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	email := middleware.EmailFromContext(r.Context())
	serviceID := chi.URLParam(r, "serviceId")

	var payload servicePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	svc, err := h.services.Update(r.Context(), email, serviceID, payload.toPatch())
	if err != nil {
		h.writePipelineError(w, "обновление сервиса", serviceID, err)
		return
	}

	writeJSON(w, http.StatusOK, mapService(svc))
}

// writePipelineError конвертирует ошибку pipeline в HTTP-ответ.
// Специфичные sentinel-ошибки проверяются раньше общих.
func (h *APIHandler) writePipelineError(w http.ResponseWriter, op, resourceID string, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		apierrors.NotFound(w, msgUserNotFound)
	case errors.Is(err, service.ErrSubscriptionNotFound):
		apierrors.NotFound(w, msgSubscriptionNotFound)
	case errors.Is(err, service.ErrServiceNotFound):
		apierrors.NotFound(w, msgServiceNotFound)
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, msgForbidden)
	default:
		h.logger.Error("Ошибка pipeline", "operation", op, "resource_id", resourceID, "error", err)
		apierrors.InternalError(w, err.Error())
	}
}
