// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — ресурс не найден (или отказ в доступе, намеренно
	// скрытый как отсутствие ресурса).
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — у пользователя недостаточно прав для операции.
	ErrForbidden = errors.New("недостаточно прав для выполнения операции")
)

// Уточнённые варианты ErrNotFound. Handlers подбирают по ним стабильный
// заголовок ответа; сам факт существования ресурса при этом не раскрывается.
var (
	// ErrUserNotFound — пользователь портала не найден в API Management.
	ErrUserNotFound = fmt.Errorf("%w: пользователь портала", ErrNotFound)
	// ErrSubscriptionNotFound — подписка не найдена либо сервис не принадлежит
	// пользователю. Оба случая неотличимы снаружи.
	ErrSubscriptionNotFound = fmt.Errorf("%w: подписка", ErrNotFound)
	// ErrServiceNotFound — запись сервиса недоступна в Notification API.
	ErrServiceNotFound = fmt.Errorf("%w: сервис", ErrNotFound)
)
