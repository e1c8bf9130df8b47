// Точка входа Portal Module — self-care модуль платформы NotifyHub.
// Загружает конфигурацию, создаёт клиенты API Management и Notification API,
// собирает сервисный слой и API handlers, запускает мониторинг зависимостей
// (topologymetrics), HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/arturkryukov/notifyhub/portal-module/internal/api/handlers"
	"github.com/arturkryukov/notifyhub/portal-module/internal/api/middleware"
	"github.com/arturkryukov/notifyhub/portal-module/internal/api/openapi"
	"github.com/arturkryukov/notifyhub/portal-module/internal/apim"
	"github.com/arturkryukov/notifyhub/portal-module/internal/config"
	"github.com/arturkryukov/notifyhub/portal-module/internal/notifyapi"
	"github.com/arturkryukov/notifyhub/portal-module/internal/server"
	"github.com/arturkryukov/notifyhub/portal-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Portal Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("PM_DEPHEALTH_GROUP") == "" {
		logger.Warn("PM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. HTTP-клиент с кастомным CA (для API Management и Notification API)
	var httpClientCA *http.Client
	if cfg.CACertPath != "" {
		httpClientCA, err = buildHTTPClientWithCA(cfg.CACertPath, cfg.HTTPClientTimeout)
		if err != nil {
			logger.Error("Ошибка загрузки CA-сертификата", slog.String("path", cfg.CACertPath), slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("CA-сертификат загружен", slog.String("path", cfg.CACertPath))
	}

	// 4. API Management клиент (identity портальных пользователей и подписки)
	apimClient := apim.New(
		cfg.APIMURL,
		cfg.APIMClientID,
		cfg.APIMClientSecret,
		httpClientCA, // nil — стандартный пул CA
		logger,
	)
	logger.Info("API Management клиент создан", slog.String("url", cfg.APIMURL))

	// 5. Notification API клиент (реестр сервисов и логотипов)
	notifyClient := notifyapi.New(
		cfg.NotifyAPIURL,
		cfg.NotifyAPIKey,
		httpClientCA,
		logger,
	)
	logger.Info("Notification API клиент создан", slog.String("url", cfg.NotifyAPIURL))

	// 6. Services
	servicesSvc := service.NewServiceOps(apimClient, notifyClient, cfg, logger)
	usersSvc := service.NewUserService(apimClient, cfg, logger)

	// 7. Readiness checkers (API Management + Notification API + JWKS)
	jwksChecker, err := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.CACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		logger.Error("Ошибка создания JWKS readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(apimClient, notifyClient, jwksChecker)

	// 8. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, servicesSvc, usersSvc, logger)

	// 9. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.CACertPath,
		cfg.JWTIssuer,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jwtAuth.Close()
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 10. Встроенный OpenAPI контракт (отдаётся на /openapi.json)
	openapiDoc, err := openapi.Load()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. topologymetrics — мониторинг зависимостей
	// (API Management + Notification API + JWKS)
	ctx := context.Background()
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"portal-module",
		cfg.DephealthGroup,
		cfg.APIMURL,
		cfg.NotifyAPIURL,
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, openapiDoc)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Portal Module остановлен")
}

// buildHTTPClientWithCA создаёт HTTP-клиент с кастомным CA-сертификатом.
func buildHTTPClientWithCA(caCertPath string, timeout time.Duration) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs: caCertPool,
			},
		},
	}, nil
}
