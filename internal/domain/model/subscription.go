package model

import "time"

// Subscription — подписка пользователя на сервис в API Management.
// Наличие подписки с парой (сервис, пользователь) даёт право
// управлять сервисом.
type Subscription struct {
	// ID — идентификатор подписки (совпадает с идентификатором сервиса)
	ID string
	// UserID — идентификатор владельца подписки
	UserID string
	// State — состояние подписки (active, suspended, cancelled)
	State string
	// CreatedAt — время создания подписки
	CreatedAt time.Time
}
