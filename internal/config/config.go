// Пакет config — загрузка и валидация конфигурации Portal Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Portal Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- API Management (реестр пользователей и подписок портала) ---

	// Базовый URL API Management backend
	APIMURL string
	// Client ID для доступа к API Management
	APIMClientID string
	// Client Secret для доступа к API Management
	APIMClientSecret string

	// --- Notification API (реестр сервисов и логотипов) ---

	// Базовый URL Notification API
	NotifyAPIURL string
	// API-ключ Notification API
	NotifyAPIKey string

	// --- Логотипы ---

	// Базовый URL CDN с логотипами (redirect после загрузки)
	LogoBaseURL string

	// --- JWT ---

	// Issuer JWT
	JWTIssuer string
	// URL JWKS endpoint
	JWTJWKSURL string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Авторизация ---

	// Группы management-пользователя, дающие роль admin (через запятую)
	AdminGroups []string

	// --- HTTP-клиенты ---

	// Путь к CA-сертификату для TLS-соединений с backend'ами (опционально)
	CACertPath string
	// Таймаут исходящих HTTP-запросов
	HTTPClientTimeout time.Duration

	// --- topologymetrics ---

	// Группа зависимостей в topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// PM_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("PM_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// PM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PM_LOG_LEVEL: %w", err)
	}

	// PM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- API Management ---

	// PM_APIM_URL — обязательный
	cfg.APIMURL, err = getEnvRequired("PM_APIM_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.APIMURL = strings.TrimRight(cfg.APIMURL, "/")

	// PM_APIM_CLIENT_ID — обязательный
	cfg.APIMClientID, err = getEnvRequired("PM_APIM_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	// PM_APIM_CLIENT_SECRET — обязательный
	cfg.APIMClientSecret, err = getEnvRequired("PM_APIM_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	// --- Notification API ---

	// PM_NOTIFY_API_URL — обязательный
	cfg.NotifyAPIURL, err = getEnvRequired("PM_NOTIFY_API_URL")
	if err != nil {
		return nil, err
	}
	cfg.NotifyAPIURL = strings.TrimRight(cfg.NotifyAPIURL, "/")

	// PM_NOTIFY_API_KEY — обязательный
	cfg.NotifyAPIKey, err = getEnvRequired("PM_NOTIFY_API_KEY")
	if err != nil {
		return nil, err
	}

	// --- Логотипы ---

	// PM_LOGO_BASE_URL — обязательный
	cfg.LogoBaseURL, err = getEnvRequired("PM_LOGO_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.LogoBaseURL = strings.TrimRight(cfg.LogoBaseURL, "/")

	// --- JWT ---

	// PM_JWT_ISSUER — обязательный
	cfg.JWTIssuer, err = getEnvRequired("PM_JWT_ISSUER")
	if err != nil {
		return nil, err
	}

	// PM_JWT_JWKS_URL — обязательный
	cfg.JWTJWKSURL, err = getEnvRequired("PM_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}

	// PM_JWKS_CLIENT_TIMEOUT — таймаут HTTP-клиента JWKS (по умолчанию 10s)
	cfg.JWKSClientTimeout, err = getEnvDuration("PM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// PM_JWKS_REFRESH_INTERVAL — интервал обновления ключей (по умолчанию 5m)
	cfg.JWKSRefreshInterval, err = getEnvDuration("PM_JWKS_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// PM_JWT_LEEWAY — допуск времени при проверке exp/nbf (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("PM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_JWT_LEEWAY: %w", err)
	}

	// --- Авторизация ---

	// PM_ADMIN_GROUPS — группы для роли admin (по умолчанию "apiadmin")
	cfg.AdminGroups = parseCSV(getEnvDefault("PM_ADMIN_GROUPS", "apiadmin"))

	// --- HTTP-клиенты ---

	// PM_CA_CERT_PATH — путь к CA-сертификату (опционально)
	cfg.CACertPath = getEnvDefault("PM_CA_CERT_PATH", "")

	// PM_HTTP_CLIENT_TIMEOUT — таймаут исходящих запросов (по умолчанию 30s)
	cfg.HTTPClientTimeout, err = getEnvDuration("PM_HTTP_CLIENT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_HTTP_CLIENT_TIMEOUT: %w", err)
	}

	// --- topologymetrics ---

	// PM_DEPHEALTH_GROUP — группа зависимостей (по умолчанию "notifyhub")
	cfg.DephealthGroup = getEnvDefault("PM_DEPHEALTH_GROUP", "notifyhub")

	// PM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("PM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// PM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
