// Пакет openapi — встроенный OpenAPI контракт Portal Module.
// Контракт парсится и валидируется при старте; ошибка в документе
// останавливает процесс раньше приёма трафика.
package openapi

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

// Load парсит и валидирует встроенный OpenAPI документ.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("парсинг OpenAPI документа: %w", err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI документа: %w", err)
	}

	return doc, nil
}

// Handler возвращает HTTP-обработчик, отдающий контракт в JSON.
// Доступен без аутентификации: контракт публичен для клиентов портала.
func Handler(doc *openapi3.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := doc.MarshalJSON()
		if err != nil {
			http.Error(w, "ошибка сериализации OpenAPI документа", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
