// Package admin реализует админ-панель с парольной аутентификацией.
// models.go описывает структуры сессий и попыток входа.
package admin

import "time"

// Session: активная сессия администратора.
type Session struct {
	Token           string
	UserID          int64
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
}

// loginAttempts: неудачные попытки входа за последнее окно.
type loginAttempts struct {
	failures []time.Time
}

// Лимиты входа.
const (
	maxFailedAttempts = 5
	attemptsWindow    = time.Hour
)

// Параметры Argon2id
const (
	argonMemory      uint32 = 64 * 1024 // 64 MB
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	argonSaltLength         = 16
)
