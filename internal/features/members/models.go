// Package members хранит участников чатов: имя и @username
// для отображения в лидербордах.
// models.go описывает структуру участника.
package members

import (
	"fmt"
	"time"
)

// Member: участник, которого бот видел в каком-либо чате.
type Member struct {
	UserID    int64     `db:"user_id"`    // Telegram user ID (уникальный)
	Username  string    `db:"username"`   // @username (может быть пустым)
	FirstName string    `db:"first_name"` // Имя пользователя
	LastName  string    `db:"last_name"`  // Фамилия (может быть пустой)
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username, возвращает его, иначе имя и фамилию.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	if name == "" {
		return fmt.Sprintf("id%d", m.UserID)
	}
	return name
}

// sameInfo: данные не изменились, писать в базу не нужно.
func (m *Member) sameInfo(username, firstName, lastName string) bool {
	return m.Username == username && m.FirstName == firstName && m.LastName == lastName
}
