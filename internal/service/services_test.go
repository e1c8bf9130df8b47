package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/arturkryukov/notifyhub/portal-module/internal/apim"
	"github.com/arturkryukov/notifyhub/portal-module/internal/config"
	"github.com/arturkryukov/notifyhub/portal-module/internal/domain/model"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- Mock-клиенты ---

// mockIdentityClient реализует IdentityClient с записью вызовов.
type mockIdentityClient struct {
	user       *model.PortalUser
	userErr    error
	subErr     error // ошибка GetSubscription (admin-ветка)
	userSubErr error // ошибка GetUserSubscription (owner-ветка)

	emailCalls   []string
	subCalls     []string // идентификаторы сервисов без фильтра по владельцу
	userSubCalls []string // "serviceID/userID"
}

func (m *mockIdentityClient) GetUserByEmail(_ context.Context, email string) (*model.PortalUser, error) {
	m.emailCalls = append(m.emailCalls, email)
	if m.userErr != nil {
		return nil, m.userErr
	}
	return m.user, nil
}

func (m *mockIdentityClient) GetSubscription(_ context.Context, serviceID string) (*model.Subscription, error) {
	m.subCalls = append(m.subCalls, serviceID)
	if m.subErr != nil {
		return nil, m.subErr
	}
	return &model.Subscription{ID: serviceID, State: "active"}, nil
}

func (m *mockIdentityClient) GetUserSubscription(_ context.Context, serviceID, userID string) (*model.Subscription, error) {
	m.userSubCalls = append(m.userSubCalls, serviceID+"/"+userID)
	if m.userSubErr != nil {
		return nil, m.userSubErr
	}
	return &model.Subscription{ID: serviceID, UserID: userID, State: "active"}, nil
}

// mockRegistryClient реализует ServiceRegistryClient с записью вызовов.
type mockRegistryClient struct {
	service          *model.Service
	getErr           error
	updateErr        error
	uploadServiceErr error
	uploadOrgErr     error

	getCalls           []string
	submitted          *model.Service // запись, отправленная в UpdateService
	uploadServiceCalls []string
	uploadOrgCalls     []string
	uploadedLogo       string
}

func (m *mockRegistryClient) GetService(_ context.Context, serviceID string) (*model.Service, error) {
	m.getCalls = append(m.getCalls, serviceID)
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.service, nil
}

func (m *mockRegistryClient) UpdateService(_ context.Context, svc *model.Service) (*model.Service, error) {
	m.submitted = svc
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return svc, nil
}

func (m *mockRegistryClient) UploadServiceLogo(_ context.Context, serviceID, logoBase64 string) error {
	m.uploadServiceCalls = append(m.uploadServiceCalls, serviceID)
	m.uploadedLogo = logoBase64
	return m.uploadServiceErr
}

func (m *mockRegistryClient) UploadOrganizationLogo(_ context.Context, fiscalCode, logoBase64 string) error {
	m.uploadOrgCalls = append(m.uploadOrgCalls, fiscalCode)
	m.uploadedLogo = logoBase64
	return m.uploadOrgErr
}

// --- Фикстуры ---

func testConfig() *config.Config {
	return &config.Config{
		AdminGroups: []string{"apiadmin"},
		LogoBaseURL: "https://assets.notifyhub.lan/logos",
	}
}

func adminUser() *model.PortalUser {
	return &model.PortalUser{
		ID:     "admin-1",
		Email:  "admin@example.com",
		Groups: []string{"apiadmin"},
	}
}

func developerUser() *model.PortalUser {
	return &model.PortalUser{
		ID:     "dev-1",
		Email:  "dev@example.com",
		Groups: []string{"developers"},
	}
}

// baseService возвращает свежую запись сервиса для тестов слияния.
func baseService() *model.Service {
	return &model.Service{
		ServiceID:               "svc-001",
		ServiceName:             "Foo",
		DepartmentName:          "Департамент ЖКХ",
		OrganizationName:        "Администрация города",
		OrganizationFiscalCode:  "7701234567",
		IsVisible:               false,
		AuthorizedCIDRs:         []string{"10.0.0.0/8"},
		AuthorizedRecipients:    []string{"RCPT-001"},
		MaxAllowedPaymentAmount: 100000,
		RequireSecureChannels:   true,
		Version:                 3,
		Metadata: &model.ServiceMetadata{
			Description: "Уведомления о начислениях",
			Scope:       "LOCAL",
		},
	}
}

func newTestOps(idClient *mockIdentityClient, regClient *mockRegistryClient) *ServiceOps {
	return NewServiceOps(idClient, regClient, testConfig(), testLogger())
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

// --- Get ---

// TestServiceOps_Get проверяет получение сервиса владельцем (не-админом).
func TestServiceOps_Get(t *testing.T) {
	idClient := &mockIdentityClient{user: developerUser()}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	svc, err := ops.Get(context.Background(), "dev@example.com", "svc-001")
	if err != nil {
		t.Fatalf("Ошибка Get: %v", err)
	}
	if svc.ServiceID != "svc-001" {
		t.Errorf("ожидался ServiceID=svc-001, получен %s", svc.ServiceID)
	}

	// Владелец проверяется scoped-запросом (сервис + пользователь)
	if len(idClient.userSubCalls) != 1 || idClient.userSubCalls[0] != "svc-001/dev-1" {
		t.Errorf("ожидался один scoped-вызов svc-001/dev-1, получены %v", idClient.userSubCalls)
	}
	if len(idClient.subCalls) != 0 {
		t.Errorf("unscoped-вызов не ожидался, получены %v", idClient.subCalls)
	}
}

// TestServiceOps_Get_AdminBypass проверяет снятие фильтра по владельцу для админа.
func TestServiceOps_Get_AdminBypass(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Get(context.Background(), "admin@example.com", "svc-001")
	if err != nil {
		t.Fatalf("Ошибка Get: %v", err)
	}

	// Админ-ветка: подписка ищется без фильтра по владельцу
	if len(idClient.subCalls) != 1 || idClient.subCalls[0] != "svc-001" {
		t.Errorf("ожидался один unscoped-вызов svc-001, получены %v", idClient.subCalls)
	}
	if len(idClient.userSubCalls) != 0 {
		t.Errorf("scoped-вызов не ожидался, получены %v", idClient.userSubCalls)
	}
}

// TestServiceOps_Get_UserNotFound проверяет короткое замыкание на первом этапе.
func TestServiceOps_Get_UserNotFound(t *testing.T) {
	idClient := &mockIdentityClient{userErr: apim.ErrNotFound}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Get(context.Background(), "ghost@example.com", "svc-001")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ожидался ErrUserNotFound, получена: %v", err)
	}

	// Последующие этапы не выполняются
	if len(idClient.subCalls)+len(idClient.userSubCalls) != 0 {
		t.Error("проверка подписки не должна выполняться после отказа resolve")
	}
	if len(regClient.getCalls) != 0 {
		t.Error("fetch не должен выполняться после отказа resolve")
	}
}

// TestServiceOps_Get_IdentityFault проверяет, что сбой поиска пользователя
// не маскируется под NotFound.
func TestServiceOps_Get_IdentityFault(t *testing.T) {
	idClient := &mockIdentityClient{userErr: errors.New("connection refused")}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Get(context.Background(), "dev@example.com", "svc-001")
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("сбой backend'а не должен возвращаться как NotFound")
	}
	if len(regClient.getCalls) != 0 {
		t.Error("fetch не должен выполняться после сбоя resolve")
	}
}

// TestServiceOps_Get_NoSubscription проверяет отказ владения для не-админа.
func TestServiceOps_Get_NoSubscription(t *testing.T) {
	idClient := &mockIdentityClient{user: developerUser(), userSubErr: apim.ErrNotFound}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Get(context.Background(), "dev@example.com", "svc-002")
	if !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("ожидался ErrSubscriptionNotFound, получена: %v", err)
	}
	// Отказ владения скрывается как NotFound, не Forbidden
	if errors.Is(err, ErrForbidden) {
		t.Error("отказ владения не должен возвращаться как Forbidden")
	}
	if len(regClient.getCalls) != 0 {
		t.Error("fetch не должен выполняться без подписки")
	}
}

// TestServiceOps_Get_SubscriptionFault проверяет сбой проверки подписки.
func TestServiceOps_Get_SubscriptionFault(t *testing.T) {
	idClient := &mockIdentityClient{user: developerUser(), userSubErr: errors.New("timeout")}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Get(context.Background(), "dev@example.com", "svc-001")
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("сбой backend'а не должен возвращаться как NotFound")
	}
}

// TestServiceOps_Get_FetchFailureConcealed проверяет, что любой сбой
// получения записи, включая транспортный, возвращается как NotFound.
func TestServiceOps_Get_FetchFailureConcealed(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	regClient := &mockRegistryClient{getErr: errors.New("Notification API вернул статус 503")}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Get(context.Background(), "admin@example.com", "svc-001")
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("ожидался ErrServiceNotFound, получена: %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("ErrServiceNotFound должен распознаваться как ErrNotFound")
	}
}

// --- Update ---

// TestServiceOps_Update_MergeVisibility проверяет слияние патча видимости.
func TestServiceOps_Update_MergeVisibility(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	prior := baseService()
	prior.ServiceID = "S1"
	regClient := &mockRegistryClient{service: prior}
	ops := newTestOps(idClient, regClient)

	updated, err := ops.Update(context.Background(), "admin@example.com", "S1",
		model.ServicePatch{IsVisible: boolPtr(true)})
	if err != nil {
		t.Fatalf("Ошибка Update: %v", err)
	}

	if !updated.IsVisible {
		t.Error("ожидался IsVisible=true после слияния")
	}
	if updated.ServiceName != "Foo" {
		t.Errorf("имя не должно меняться, получено %s", updated.ServiceName)
	}

	// Downstream получает слитую запись целиком
	if regClient.submitted == nil {
		t.Fatal("запись не была отправлена downstream")
	}
	if !regClient.submitted.IsVisible || regClient.submitted.ServiceName != "Foo" {
		t.Error("downstream должен получить слитую запись с is_visible=true и прежним именем")
	}
}

// TestServiceOps_Update_PartialPatch проверяет, что патч одного поля
// сохраняет все остальные поля записи.
func TestServiceOps_Update_PartialPatch(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Update(context.Background(), "admin@example.com", "svc-001",
		model.ServicePatch{DepartmentName: strPtr("Новый департамент")})
	if err != nil {
		t.Fatalf("Ошибка Update: %v", err)
	}

	got := regClient.submitted
	want := baseService()
	want.DepartmentName = "Новый департамент"

	if !reflect.DeepEqual(got, want) {
		t.Errorf("слитая запись отличается от ожидаемой:\nполучено: %+v\nожидалось: %+v", got, want)
	}
}

// TestServiceOps_Update_NonAdminAllowList проверяет, что не-админу доступно
// только разрешённое подмножество полей; остальные отбрасываются молча.
func TestServiceOps_Update_NonAdminAllowList(t *testing.T) {
	idClient := &mockIdentityClient{user: developerUser()}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	var limit int64 = 999999
	updated, err := ops.Update(context.Background(), "dev@example.com", "svc-001",
		model.ServicePatch{
			ServiceName:             strPtr("Переименованный"),
			IsVisible:               boolPtr(true),
			MaxAllowedPaymentAmount: &limit,
			Metadata:                &model.ServiceMetadata{Scope: "NATIONAL"},
		})
	if err != nil {
		t.Fatalf("Ошибка Update: %v", err)
	}

	// Разрешённое поле применилось
	if updated.ServiceName != "Переименованный" {
		t.Errorf("ожидалось имя Переименованный, получено %s", updated.ServiceName)
	}
	// Поля вне allow-list сохранили прежние значения
	if updated.IsVisible {
		t.Error("не-админ не должен менять is_visible")
	}
	if updated.MaxAllowedPaymentAmount != 100000 {
		t.Errorf("не-админ не должен менять платёжный лимит, получено %d", updated.MaxAllowedPaymentAmount)
	}
	if updated.Metadata == nil || updated.Metadata.Scope != "LOCAL" {
		t.Error("не-админ не должен менять метаданные")
	}
}

// TestServiceOps_Update_AdminFullAccess проверяет, что админу доступны все поля.
func TestServiceOps_Update_AdminFullAccess(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	var limit int64 = 500000
	updated, err := ops.Update(context.Background(), "admin@example.com", "svc-001",
		model.ServicePatch{
			IsVisible:               boolPtr(true),
			MaxAllowedPaymentAmount: &limit,
		})
	if err != nil {
		t.Fatalf("Ошибка Update: %v", err)
	}

	if !updated.IsVisible {
		t.Error("админ должен менять is_visible")
	}
	if updated.MaxAllowedPaymentAmount != 500000 {
		t.Errorf("админ должен менять платёжный лимит, получено %d", updated.MaxAllowedPaymentAmount)
	}
}

// TestServiceOps_Update_NoSubscription проверяет, что без подписки fetch и
// update не выполняются.
func TestServiceOps_Update_NoSubscription(t *testing.T) {
	idClient := &mockIdentityClient{user: developerUser(), userSubErr: apim.ErrNotFound}
	regClient := &mockRegistryClient{service: baseService()}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Update(context.Background(), "dev@example.com", "S2",
		model.ServicePatch{ServiceName: strPtr("x")})
	if !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("ожидался ErrSubscriptionNotFound, получена: %v", err)
	}

	if len(regClient.getCalls) != 0 {
		t.Error("fetch не должен выполняться без подписки")
	}
	if regClient.submitted != nil {
		t.Error("update не должен выполняться без подписки")
	}
}

// TestServiceOps_Update_FetchFailure проверяет, что сбой fetch в Update
// возвращается как NotFound.
func TestServiceOps_Update_FetchFailure(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	regClient := &mockRegistryClient{getErr: errors.New("timeout")}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Update(context.Background(), "admin@example.com", "svc-001",
		model.ServicePatch{ServiceName: strPtr("x")})
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("ожидался ErrServiceNotFound, получена: %v", err)
	}
	if regClient.submitted != nil {
		t.Error("update не должен выполняться после сбоя fetch")
	}
}

// TestServiceOps_Update_SubmitFailure проверяет, что ошибка отправки несёт
// сообщение downstream и не маскируется под NotFound/Forbidden.
func TestServiceOps_Update_SubmitFailure(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	regClient := &mockRegistryClient{
		service:   baseService(),
		updateErr: errors.New("Notification API вернул статус 409: version conflict"),
	}
	ops := newTestOps(idClient, regClient)

	_, err := ops.Update(context.Background(), "admin@example.com", "svc-001",
		model.ServicePatch{ServiceName: strPtr("x")})
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
		t.Error("сбой отправки не должен маскироваться под NotFound/Forbidden")
	}
	if !strings.Contains(err.Error(), "version conflict") {
		t.Errorf("ошибка должна нести сообщение downstream, получена: %v", err)
	}
}

// --- Логотипы ---

// TestServiceOps_UploadServiceLogo проверяет загрузку логотипа сервиса админом.
func TestServiceOps_UploadServiceLogo(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	regClient := &mockRegistryClient{}
	ops := newTestOps(idClient, regClient)

	target, err := ops.UploadServiceLogo(context.Background(), "admin@example.com", "svc-001", "aVZCT1J3MEtHZ28=")
	if err != nil {
		t.Fatalf("Ошибка UploadServiceLogo: %v", err)
	}

	want := "https://assets.notifyhub.lan/logos/services/svc-001.png"
	if target != want {
		t.Errorf("ожидался адрес %s, получен %s", want, target)
	}
	if len(regClient.uploadServiceCalls) != 1 || regClient.uploadServiceCalls[0] != "svc-001" {
		t.Errorf("ожидался один upload svc-001, получены %v", regClient.uploadServiceCalls)
	}
	if regClient.uploadedLogo != "aVZCT1J3MEtHZ28=" {
		t.Errorf("неожиданное содержимое логотипа: %s", regClient.uploadedLogo)
	}
}

// TestServiceOps_UploadServiceLogo_NonAdmin проверяет отказ не-админу
// независимо от владения сервисом.
func TestServiceOps_UploadServiceLogo_NonAdmin(t *testing.T) {
	// Mock вернул бы подписку владельца, но она не должна запрашиваться
	idClient := &mockIdentityClient{user: developerUser()}
	regClient := &mockRegistryClient{}
	ops := newTestOps(idClient, regClient)

	_, err := ops.UploadServiceLogo(context.Background(), "dev@example.com", "svc-001", "aVZCT1J3MEtHZ28=")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("ожидался ErrForbidden, получена: %v", err)
	}

	if len(regClient.uploadServiceCalls) != 0 {
		t.Error("upload не должен выполняться для не-админа")
	}
	// Владение для логотипов не проверяется вовсе
	if len(idClient.subCalls)+len(idClient.userSubCalls) != 0 {
		t.Error("проверка подписки не должна выполняться для логотипов")
	}
}

// TestServiceOps_UploadServiceLogo_UserNotFound проверяет resolve-этап логотипов.
func TestServiceOps_UploadServiceLogo_UserNotFound(t *testing.T) {
	idClient := &mockIdentityClient{userErr: apim.ErrNotFound}
	regClient := &mockRegistryClient{}
	ops := newTestOps(idClient, regClient)

	_, err := ops.UploadServiceLogo(context.Background(), "ghost@example.com", "svc-001", "aVZCT1J3MEtHZ28=")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ожидался ErrUserNotFound, получена: %v", err)
	}
	if len(regClient.uploadServiceCalls) != 0 {
		t.Error("upload не должен выполняться после отказа resolve")
	}
}

// TestServiceOps_UploadServiceLogo_DownstreamError проверяет отказ downstream.
func TestServiceOps_UploadServiceLogo_DownstreamError(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	regClient := &mockRegistryClient{
		uploadServiceErr: errors.New("Notification API вернул статус 200 вместо 201"),
	}
	ops := newTestOps(idClient, regClient)

	_, err := ops.UploadServiceLogo(context.Background(), "admin@example.com", "svc-001", "aVZCT1J3MEtHZ28=")
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
		t.Error("сбой загрузки не должен маскироваться под NotFound/Forbidden")
	}
}

// TestServiceOps_UploadOrganizationLogo проверяет загрузку логотипа организации.
// Адрес строится по общему шаблону /services/ даже для организаций.
func TestServiceOps_UploadOrganizationLogo(t *testing.T) {
	idClient := &mockIdentityClient{user: adminUser()}
	regClient := &mockRegistryClient{}
	ops := newTestOps(idClient, regClient)

	target, err := ops.UploadOrganizationLogo(context.Background(), "admin@example.com", "ORG1", "aVZCT1J3MEtHZ28=")
	if err != nil {
		t.Fatalf("Ошибка UploadOrganizationLogo: %v", err)
	}

	want := "https://assets.notifyhub.lan/logos/services/ORG1.png"
	if target != want {
		t.Errorf("ожидался адрес %s, получен %s", want, target)
	}
	if len(regClient.uploadOrgCalls) != 1 || regClient.uploadOrgCalls[0] != "ORG1" {
		t.Errorf("ожидался один upload ORG1, получены %v", regClient.uploadOrgCalls)
	}
}

// TestServiceOps_UploadOrganizationLogo_NonAdmin проверяет отказ не-админу.
func TestServiceOps_UploadOrganizationLogo_NonAdmin(t *testing.T) {
	idClient := &mockIdentityClient{user: developerUser()}
	regClient := &mockRegistryClient{}
	ops := newTestOps(idClient, regClient)

	_, err := ops.UploadOrganizationLogo(context.Background(), "dev@example.com", "ORG1", "aVZCT1J3MEtHZ28=")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("ожидался ErrForbidden, получена: %v", err)
	}
	if len(regClient.uploadOrgCalls) != 0 {
		t.Error("upload не должен выполняться для не-админа")
	}
}
