// dephealth_test.go — unit-тесты конструктора dephealth и извлечения path.
package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestHealthPath проверяет извлечение path из URL зависимости.
func TestHealthPath(t *testing.T) {
	tests := []struct {
		name     string
		rawURL   string
		fallback string
		expected string
	}{
		{
			name:     "URL с path",
			rawURL:   "https://apim.notifyhub.lan/v1/status",
			fallback: "/health",
			expected: "/v1/status",
		},
		{
			name:     "URL без path — fallback",
			rawURL:   "https://apim.notifyhub.lan",
			fallback: "/v1/status",
			expected: "/v1/status",
		},
		{
			name:     "JWKS path",
			rawURL:   "https://sso.notifyhub.lan/realms/portal/protocol/openid-connect/certs",
			fallback: "/health",
			expected: "/realms/portal/protocol/openid-connect/certs",
		},
		{
			name:     "URL с портом без path",
			rawURL:   "http://localhost:8020",
			fallback: "/status",
			expected: "/status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := healthPath(tt.rawURL, tt.fallback)
			if result != tt.expected {
				t.Errorf("healthPath(%q) = %q, ожидалось %q", tt.rawURL, result, tt.expected)
			}
		})
	}
}

// TestNewDephealthService проверяет конструктор с изолированным registry.
func TestNewDephealthService(t *testing.T) {
	registry := prometheus.NewRegistry()

	ds, err := NewDephealthServiceWithRegisterer(
		"portal-module",
		"notifyhub",
		"https://apim.notifyhub.lan/v1/status",
		"https://api.notifyhub.lan/status",
		"https://sso.notifyhub.lan/realms/portal/protocol/openid-connect/certs",
		15*time.Second,
		testLogger(),
		registry,
	)
	if err != nil {
		t.Fatalf("Ошибка создания dephealth: %v", err)
	}
	if ds == nil {
		t.Fatal("ожидался не-nil сервис")
	}
}
