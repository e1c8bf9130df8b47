package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// validLogoBody — корректное тело запроса логотипа (base64 PNG-заглушки).
const validLogoBody = `{"logo": "aVZCT1J3MEtHZ28="}`

// --- PUT /api/v1/services/{serviceId}/logo ---

// TestUploadServiceLogo_Created — администратор загружает логотип сервиса.
func TestUploadServiceLogo_Created(t *testing.T) {
	ident := &mockIdentityClient{user: adminUser()}
	reg := &mockRegistryClient{service: baseService()}
	router := newTestRouter(ident, reg)

	req := authedRequest(http.MethodPut, "/api/v1/services/svc-001/logo",
		validLogoBody, "admin@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("ожидался статус 201, получен %d, тело: %s", rec.Code, rec.Body.String())
	}

	wantLocation := "https://assets.notifyhub.lan/logos/services/svc-001.png"
	if loc := rec.Header().Get("Location"); loc != wantLocation {
		t.Errorf("ожидался Location %q, получен %q", wantLocation, loc)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("ожидалось пустое тело, получено %q", rec.Body.String())
	}
	if len(reg.uploadedLogos) != 1 || reg.uploadedLogos[0] != "svc-001:aVZCT1J3MEtHZ28=" {
		t.Errorf("неожиданные вызовы загрузки: %v", reg.uploadedLogos)
	}
}

// TestUploadServiceLogo_NonAdmin — не-администратор получает 403
// независимо от владения сервисом; загрузка не вызывается.
func TestUploadServiceLogo_NonAdmin(t *testing.T) {
	ident := &mockIdentityClient{user: developerUser()}
	reg := &mockRegistryClient{service: baseService()}
	router := newTestRouter(ident, reg)

	req := authedRequest(http.MethodPut, "/api/v1/services/svc-001/logo",
		validLogoBody, "devel@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("ожидался статус 403, получен %d", rec.Code)
	}
	code, message := decodeAPIError(t, rec.Body.String())
	if code != "FORBIDDEN" {
		t.Errorf("ожидался код FORBIDDEN, получен %s", code)
	}
	if message != msgForbidden {
		t.Errorf("ожидалось сообщение %q, получено %q", msgForbidden, message)
	}
	if len(reg.uploadedLogos) != 0 {
		t.Errorf("загрузка не должна вызываться: %v", reg.uploadedLogos)
	}
}

// TestUploadServiceLogo_InvalidBase64 — логотип не в base64.
func TestUploadServiceLogo_InvalidBase64(t *testing.T) {
	ident := &mockIdentityClient{user: adminUser()}
	reg := &mockRegistryClient{service: baseService()}
	router := newTestRouter(ident, reg)

	req := authedRequest(http.MethodPut, "/api/v1/services/svc-001/logo",
		`{"logo": "не-base64!!!"}`, "admin@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидался статус 400, получен %d", rec.Code)
	}
	code, _ := decodeAPIError(t, rec.Body.String())
	if code != "VALIDATION_ERROR" {
		t.Errorf("ожидался код VALIDATION_ERROR, получен %s", code)
	}
}

// TestUploadServiceLogo_EmptyLogo — пустое поле logo.
func TestUploadServiceLogo_EmptyLogo(t *testing.T) {
	ident := &mockIdentityClient{user: adminUser()}
	reg := &mockRegistryClient{service: baseService()}
	router := newTestRouter(ident, reg)

	req := authedRequest(http.MethodPut, "/api/v1/services/svc-001/logo",
		`{"logo": ""}`, "admin@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидался статус 400, получен %d", rec.Code)
	}
}

// TestUploadServiceLogo_DownstreamError — отказ Notification API.
func TestUploadServiceLogo_DownstreamError(t *testing.T) {
	ident := &mockIdentityClient{user: adminUser()}
	reg := &mockRegistryClient{
		service:   baseService(),
		uploadErr: errors.New("Notification API вернул статус 500: upload failed"),
	}
	router := newTestRouter(ident, reg)

	req := authedRequest(http.MethodPut, "/api/v1/services/svc-001/logo",
		validLogoBody, "admin@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("ожидался статус 500, получен %d", rec.Code)
	}
}

// --- PUT /api/v1/organizations/{fiscalCode}/logo ---

// TestUploadOrganizationLogo_Created — Location строится по тому же
// шаблону, что и для сервисов: в путь подставляется фискальный код.
func TestUploadOrganizationLogo_Created(t *testing.T) {
	ident := &mockIdentityClient{user: adminUser()}
	reg := &mockRegistryClient{service: baseService()}
	router := newTestRouter(ident, reg)

	req := authedRequest(http.MethodPut, "/api/v1/organizations/ORG1/logo",
		validLogoBody, "admin@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("ожидался статус 201, получен %d, тело: %s", rec.Code, rec.Body.String())
	}

	wantLocation := "https://assets.notifyhub.lan/logos/services/ORG1.png"
	if loc := rec.Header().Get("Location"); loc != wantLocation {
		t.Errorf("ожидался Location %q, получен %q", wantLocation, loc)
	}
	if len(reg.uploadedLogos) != 1 || reg.uploadedLogos[0] != "ORG1:aVZCT1J3MEtHZ28=" {
		t.Errorf("неожиданные вызовы загрузки: %v", reg.uploadedLogos)
	}
}

// TestUploadOrganizationLogo_NonAdmin — не-администратор получает 403.
func TestUploadOrganizationLogo_NonAdmin(t *testing.T) {
	ident := &mockIdentityClient{user: developerUser()}
	reg := &mockRegistryClient{service: baseService()}
	router := newTestRouter(ident, reg)

	req := authedRequest(http.MethodPut, "/api/v1/organizations/7701234567/logo",
		validLogoBody, "devel@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("ожидался статус 403, получен %d", rec.Code)
	}
	if len(reg.uploadedLogos) != 0 {
		t.Errorf("загрузка не должна вызываться: %v", reg.uploadedLogos)
	}
}
