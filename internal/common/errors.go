// Package common (errors.go) определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки рейтинга (плюсы, минусы, возврат)
var (
	// ErrSelfTarget: попытка изменить рейтинг самому себе
	ErrSelfTarget = errors.New("сам себе — запрещено")
	// ErrAmountOutOfRange: модуль суммы вне разрешённого диапазона
	ErrAmountOutOfRange = errors.New("сумма вне допустимого диапазона")
	// ErrInsufficientQuota: не хватает дневных плюсов
	ErrInsufficientQuota = errors.New("баллов не хватит")
	// ErrNothingToReclaim: бесплатные минусы кончились, а забирать нечего
	ErrNothingToReclaim = errors.New("сначала дай — потом забирай")
	// ErrStorageUnavailable: хранилище недоступно, операция не выполнена
	ErrStorageUnavailable = errors.New("хранилище недоступно")
	// ErrAccountNotFound: запись рейтинга ещё не создана
	ErrAccountNotFound = errors.New("запись рейтинга не найдена")
)

// Ошибки участников
var (
	// ErrUserNotFound: пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки админки
var (
	// ErrNotAdmin: пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword: неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts: слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired: сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
	// ErrAdminDisabled: хеш пароля не задан, админка выключена
	ErrAdminDisabled = errors.New("админ-панель отключена")
)
