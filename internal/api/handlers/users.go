// users.go — обработчик GET /api/v1/me.
package handlers

import (
	"net/http"

	"github.com/arturkryukov/notifyhub/portal-module/internal/api/middleware"
)

// GetCurrentUser — GET /api/v1/me.
// Возвращает запись вызывающего из API Management вместе с вычисленной ролью.
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	email := middleware.EmailFromContext(r.Context())

	user, role, err := h.users.Current(r.Context(), email)
	if err != nil {
		h.writePipelineError(w, "получение профиля", email, err)
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user, role))
}
