// Пакет model — доменные модели Portal Module.
package model

// Service — сервис организации в Notification API.
// Не хранится локально — модуль читает и частично перезаписывает
// запись, которой владеет Notification API.
type Service struct {
	// ServiceID — идентификатор сервиса (задаётся Notification API)
	ServiceID string
	// ServiceName — название сервиса
	ServiceName string
	// DepartmentName — название департамента организации
	DepartmentName string
	// OrganizationName — название организации
	OrganizationName string
	// OrganizationFiscalCode — фискальный код организации
	OrganizationFiscalCode string
	// IsVisible — виден ли сервис в публичном каталоге
	IsVisible bool
	// AuthorizedCIDRs — CIDR-диапазоны, с которых сервис может слать уведомления
	AuthorizedCIDRs []string
	// AuthorizedRecipients — получатели, доступные сервису в тестовом режиме
	AuthorizedRecipients []string
	// MaxAllowedPaymentAmount — максимальная сумма платежа в уведомлении (центы)
	MaxAllowedPaymentAmount int64
	// RequireSecureChannels — доставка только по защищённым каналам
	RequireSecureChannels bool
	// Version — версия записи в Notification API
	Version int
	// Metadata — дополнительные сведения о сервисе (может быть nil)
	Metadata *ServiceMetadata
}

// ServiceMetadata — дополнительные сведения о сервисе.
type ServiceMetadata struct {
	// Description — описание сервиса
	Description string
	// WebURL — сайт сервиса
	WebURL string
	// Email — контактный адрес
	Email string
	// Phone — контактный телефон
	Phone string
	// Scope — область действия (NATIONAL, LOCAL)
	Scope string
}

// ServicePatch — частичное обновление сервиса. Поле nil означает
// «не менять»; схема-слой API решает, какие поля присутствуют.
type ServicePatch struct {
	// ServiceName — новое название сервиса
	ServiceName *string
	// DepartmentName — новое название департамента
	DepartmentName *string
	// OrganizationName — новое название организации
	OrganizationName *string
	// OrganizationFiscalCode — новый фискальный код
	OrganizationFiscalCode *string
	// IsVisible — новая видимость в каталоге
	IsVisible *bool
	// AuthorizedCIDRs — новый список CIDR
	AuthorizedCIDRs *[]string
	// AuthorizedRecipients — новый список тестовых получателей
	AuthorizedRecipients *[]string
	// MaxAllowedPaymentAmount — новый платёжный лимит
	MaxAllowedPaymentAmount *int64
	// RequireSecureChannels — новое требование защищённых каналов
	RequireSecureChannels *bool
	// Metadata — новые метаданные (заменяются целиком)
	Metadata *ServiceMetadata
}

// OwnerFields возвращает копию патча, ограниченную полями, которые
// разрешено менять владельцу сервиса (не-администратору). Остальные
// поля молча отбрасываются.
func (p ServicePatch) OwnerFields() ServicePatch {
	return ServicePatch{
		ServiceName:            p.ServiceName,
		DepartmentName:         p.DepartmentName,
		OrganizationName:       p.OrganizationName,
		OrganizationFiscalCode: p.OrganizationFiscalCode,
	}
}

// ApplyTo накладывает патч на сервис: заданные поля перезаписываются,
// nil-поля сохраняют прежние значения.
func (p ServicePatch) ApplyTo(svc *Service) {
	if p.ServiceName != nil {
		svc.ServiceName = *p.ServiceName
	}
	if p.DepartmentName != nil {
		svc.DepartmentName = *p.DepartmentName
	}
	if p.OrganizationName != nil {
		svc.OrganizationName = *p.OrganizationName
	}
	if p.OrganizationFiscalCode != nil {
		svc.OrganizationFiscalCode = *p.OrganizationFiscalCode
	}
	if p.IsVisible != nil {
		svc.IsVisible = *p.IsVisible
	}
	if p.AuthorizedCIDRs != nil {
		svc.AuthorizedCIDRs = *p.AuthorizedCIDRs
	}
	if p.AuthorizedRecipients != nil {
		svc.AuthorizedRecipients = *p.AuthorizedRecipients
	}
	if p.MaxAllowedPaymentAmount != nil {
		svc.MaxAllowedPaymentAmount = *p.MaxAllowedPaymentAmount
	}
	if p.RequireSecureChannels != nil {
		svc.RequireSecureChannels = *p.RequireSecureChannels
	}
	if p.Metadata != nil {
		svc.Metadata = p.Metadata
	}
}
