// services.go — pipeline административных операций над сервисами.
// Каждый flow — явная последовательность этапов (resolve → authorize → act);
// первый неуспешный этап завершает flow, последующие этапы не выполняются
// и side effects не производят.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arturkryukov/notifyhub/portal-module/internal/apim"
	"github.com/arturkryukov/notifyhub/portal-module/internal/config"
	"github.com/arturkryukov/notifyhub/portal-module/internal/domain/model"
	"github.com/arturkryukov/notifyhub/portal-module/internal/domain/rbac"
)

// IdentityClient — операции API Management, используемые pipeline'ом:
// разрешение личности вызывающего и проверка подписок.
// Реализуется apim.Client.
type IdentityClient interface {
	GetUserByEmail(ctx context.Context, email string) (*model.PortalUser, error)
	GetSubscription(ctx context.Context, serviceID string) (*model.Subscription, error)
	GetUserSubscription(ctx context.Context, serviceID, userID string) (*model.Subscription, error)
}

// ServiceRegistryClient — операции Notification API над записями сервисов.
// Реализуется notifyapi.Client.
type ServiceRegistryClient interface {
	GetService(ctx context.Context, serviceID string) (*model.Service, error)
	UpdateService(ctx context.Context, svc *model.Service) (*model.Service, error)
	UploadServiceLogo(ctx context.Context, serviceID, logoBase64 string) error
	UploadOrganizationLogo(ctx context.Context, fiscalCode, logoBase64 string) error
}

// ServiceOps — операции административного API над сервисами.
type ServiceOps struct {
	apimClient   IdentityClient
	notifyClient ServiceRegistryClient
	cfg          *config.Config
	logger       *slog.Logger
}

// NewServiceOps создаёт pipeline операций над сервисами.
// cfg передаётся по ссылке и после старта процесса не меняется.
func NewServiceOps(
	apimClient IdentityClient,
	notifyClient ServiceRegistryClient,
	cfg *config.Config,
	logger *slog.Logger,
) *ServiceOps {
	return &ServiceOps{
		apimClient:   apimClient,
		notifyClient: notifyClient,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "service_ops")),
	}
}

// --- Этапы pipeline ---

// resolveUser — первый этап каждого flow: трансляция аутентифицированного
// вызывающего в пользователя API Management по его основному email.
// Последующие этапы доверяют разрешённой записи, а не claims токена.
func (s *ServiceOps) resolveUser(ctx context.Context, email string) (*model.PortalUser, error) {
	user, err := s.apimClient.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apim.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("поиск пользователя API Management: %w", err)
	}
	return user, nil
}

// checkSubscription — проверка права действовать над сервисом.
// Для администратора фильтр по владельцу снимается: подписка ищется только
// по идентификатору сервиса. Отсутствие подписки в обоих ветках —
// ErrSubscriptionNotFound: снаружи неразличимо, не существует сервис или
// принадлежит другому пользователю.
func (s *ServiceOps) checkSubscription(ctx context.Context, user *model.PortalUser, serviceID string) error {
	var err error
	if rbac.IsAdmin(user.Groups, s.cfg.AdminGroups) {
		_, err = s.apimClient.GetSubscription(ctx, serviceID)
	} else {
		_, err = s.apimClient.GetUserSubscription(ctx, serviceID, user.ID)
	}

	if err != nil {
		if errors.Is(err, apim.ErrNotFound) {
			return ErrSubscriptionNotFound
		}
		return fmt.Errorf("проверка подписки: %w", err)
	}

	return nil
}

// requireAdmin — гейт admin-only операций. В отличие от checkSubscription
// отказ возвращается как ErrForbidden: операциям с логотипами скрывать
// существование ресурса не требуется.
func (s *ServiceOps) requireAdmin(user *model.PortalUser) error {
	if !rbac.IsAdmin(user.Groups, s.cfg.AdminGroups) {
		return ErrForbidden
	}
	return nil
}

// fetchService — получение текущей записи сервиса из Notification API.
// Любая ошибка получения, включая транспортную, скрывается как
// ErrServiceNotFound.
func (s *ServiceOps) fetchService(ctx context.Context, serviceID string) (*model.Service, error) {
	svc, err := s.notifyClient.GetService(ctx, serviceID)
	if err != nil {
		s.logger.Warn("Получение записи сервиса не удалось",
			slog.String("service_id", serviceID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrServiceNotFound, err) //nolint:errorlint // намеренный двойной wrap
	}
	return svc, nil
}

// --- Flows ---

// Get возвращает запись сервиса для авторизованного пользователя.
// Последовательность: resolve → подписка → fetch. Без мутаций.
func (s *ServiceOps) Get(ctx context.Context, callerEmail, serviceID string) (*model.Service, error) {
	user, err := s.resolveUser(ctx, callerEmail)
	if err != nil {
		return nil, err
	}

	if err := s.checkSubscription(ctx, user, serviceID); err != nil {
		return nil, err
	}

	return s.fetchService(ctx, serviceID)
}

// Update применяет частичный патч к записи сервиса.
// Последовательность: resolve → подписка → fetch → merge → submit.
// Merge накладывает патч поверх текущей записи: не указанные в патче поля
// сохраняют прежние значения. Не-администратору доступно только
// подмножество полей (service_name, department_name, organization_name,
// organization_fiscal_code); остальные значения патча молча отбрасываются.
func (s *ServiceOps) Update(ctx context.Context, callerEmail, serviceID string, patch model.ServicePatch) (*model.Service, error) {
	user, err := s.resolveUser(ctx, callerEmail)
	if err != nil {
		return nil, err
	}

	if err := s.checkSubscription(ctx, user, serviceID); err != nil {
		return nil, err
	}

	current, err := s.fetchService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	isAdmin := rbac.IsAdmin(user.Groups, s.cfg.AdminGroups)

	effective := patch
	if !isAdmin {
		effective = patch.OwnerFields()
	}
	effective.ApplyTo(current)

	updated, err := s.notifyClient.UpdateService(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("обновление сервиса: %w", err)
	}

	s.logger.Info("Сервис обновлён",
		slog.String("service_id", serviceID),
		slog.String("user_id", user.ID),
		slog.Bool("admin", isAdmin),
	)

	return updated, nil
}

// UploadServiceLogo загружает логотип сервиса (PNG в base64).
// Последовательность: resolve → admin-гейт → upload. Подписка не
// проверяется: операция доступна только администраторам. Возвращает адрес
// загруженного логотипа.
func (s *ServiceOps) UploadServiceLogo(ctx context.Context, callerEmail, serviceID, logoBase64 string) (string, error) {
	user, err := s.resolveUser(ctx, callerEmail)
	if err != nil {
		return "", err
	}

	if err := s.requireAdmin(user); err != nil {
		return "", err
	}

	if err := s.notifyClient.UploadServiceLogo(ctx, serviceID, logoBase64); err != nil {
		return "", fmt.Errorf("загрузка логотипа сервиса: %w", err)
	}

	s.logger.Info("Логотип сервиса загружен",
		slog.String("service_id", serviceID),
		slog.String("user_id", user.ID),
	)

	return s.logoTargetURL(serviceID), nil
}

// UploadOrganizationLogo загружает логотип организации (PNG в base64).
// Последовательность и правила совпадают с UploadServiceLogo; в адрес
// подставляется фискальный код организации.
func (s *ServiceOps) UploadOrganizationLogo(ctx context.Context, callerEmail, fiscalCode, logoBase64 string) (string, error) {
	user, err := s.resolveUser(ctx, callerEmail)
	if err != nil {
		return "", err
	}

	if err := s.requireAdmin(user); err != nil {
		return "", err
	}

	if err := s.notifyClient.UploadOrganizationLogo(ctx, fiscalCode, logoBase64); err != nil {
		return "", fmt.Errorf("загрузка логотипа организации: %w", err)
	}

	s.logger.Info("Логотип организации загружен",
		slog.String("fiscal_code", fiscalCode),
		slog.String("user_id", user.ID),
	)

	return s.logoTargetURL(fiscalCode), nil
}

// logoTargetURL строит адрес загруженного логотипа. Шаблон общий для
// сервисов и организаций, различается только подставляемый идентификатор.
func (s *ServiceOps) logoTargetURL(identifier string) string {
	return fmt.Sprintf("%s/services/%s.png", s.cfg.LogoBaseURL, identifier)
}
