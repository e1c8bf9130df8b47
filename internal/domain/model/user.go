package model

import "time"

// PortalUser — пользователь портала из API Management.
// Формируется Identity Resolver'ом по email аутентифицированного
// вызывающего; живёт в пределах одного запроса.
type PortalUser struct {
	// ID — стабильный идентификатор пользователя в API Management
	ID string
	// Email — основной адрес электронной почты
	Email string
	// FirstName — имя
	FirstName string
	// LastName — фамилия
	LastName string
	// Enabled — активен ли аккаунт
	Enabled bool
	// Groups — группы пользователя в API Management (определяют роль)
	Groups []string
	// CreatedAt — дата регистрации в API Management
	CreatedAt time.Time
}
