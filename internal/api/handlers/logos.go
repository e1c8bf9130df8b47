// logos.go — обработчики загрузки логотипов.
// PUT /api/v1/services/{serviceId}/logo — логотип сервиса.
// PUT /api/v1/organizations/{fiscalCode}/logo — логотип организации.
// Обе операции только для admin, независимо от владения сервисом.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/notifyhub/portal-module/internal/api/errors"
	"github.com/arturkryukov/notifyhub/portal-module/internal/api/middleware"
)

// UploadServiceLogo — PUT /api/v1/services/{serviceId}/logo.
// При успехе возвращает 201 с Location на итоговый URL логотипа.
func (h *APIHandler) UploadServiceLogo(w http.ResponseWriter, r *http.Request) {
	email := middleware.EmailFromContext(r.Context())
	serviceID := chi.URLParam(r, "serviceId")

	logo, ok := decodeLogoPayload(w, r)
	if !ok {
		return
	}

	target, err := h.services.UploadServiceLogo(r.Context(), email, serviceID, logo)
	if err != nil {
		h.writePipelineError(w, "загрузка логотипа сервиса", serviceID, err)
		return
	}

	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusCreated)
}

// UploadOrganizationLogo — PUT /api/v1/organizations/{fiscalCode}/logo.
// При успехе возвращает 201 с Location на итоговый URL логотипа.
func (h *APIHandler) UploadOrganizationLogo(w http.ResponseWriter, r *http.Request) {
	email := middleware.EmailFromContext(r.Context())
	fiscalCode := chi.URLParam(r, "fiscalCode")

	logo, ok := decodeLogoPayload(w, r)
	if !ok {
		return
	}

	target, err := h.services.UploadOrganizationLogo(r.Context(), email, fiscalCode, logo)
	if err != nil {
		h.writePipelineError(w, "загрузка логотипа организации", fiscalCode, err)
		return
	}

	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusCreated)
}

// decodeLogoPayload читает и валидирует тело запроса логотипа.
// Изображение передаётся строкой base64. При ошибке пишет 400 и
// возвращает ok=false.
func decodeLogoPayload(w http.ResponseWriter, r *http.Request) (logo string, ok bool) {
	var payload logoUploadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return "", false
	}

	if payload.Logo == "" {
		apierrors.ValidationError(w, "Поле logo обязательно")
		return "", false
	}

	if _, err := base64.StdEncoding.DecodeString(payload.Logo); err != nil {
		apierrors.ValidationError(w, "Поле logo должно быть валидной base64-строкой")
		return "", false
	}

	return payload.Logo, true
}
