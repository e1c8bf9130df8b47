// users.go — сервис текущего пользователя портала.
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

// UserService — операции над учётной записью текущего пользователя.
type UserService struct {
	apimClient IdentityClient
	cfg        *config.Config
	logger     *slog.Logger
}

// NewUserService создаёт сервис текущего пользователя.
func NewUserService(apimClient IdentityClient, cfg *config.Config, logger *slog.Logger) *UserService {
	return &UserService{
		apimClient: apimClient,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "user_service")),
	}
}

// Current возвращает запись API Management для аутентифицированного
// вызывающего и его эффективную роль в портале.
func (s *UserService) Current(ctx context.Context, email string) (*model.PortalUser, string, error) {
	user, err := s.apimClient.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apim.ErrNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("поиск пользователя API Management: %w", err)
	}

	role := rbac.MapGroupsToRole(user.Groups, s.cfg.AdminGroups)

	return user, role, nil
}
