// Package members (handlers.go) обрабатывает Telegram-события, связанные с участниками.
package members

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает события участников.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик событий участников.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleNewChatMembers регистрирует вступивших пользователей, чтобы
// в лидербордах сразу были их имена.
func (h *Handler) HandleNewChatMembers(ctx context.Context, newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		if err := h.service.EnsureMember(ctx, user.ID, user.UserName, user.FirstName, user.LastName); err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("Ошибка регистрации нового участника")
		}
	}
}

// Track запоминает автора сообщения и того, кому он ответил.
func (h *Handler) Track(ctx context.Context, message *tgbotapi.Message) {
	if message == nil {
		return
	}
	users := []*tgbotapi.User{message.From}
	if message.ReplyToMessage != nil {
		users = append(users, message.ReplyToMessage.From)
	}
	for _, u := range users {
		if u == nil || u.IsBot {
			continue
		}
		if err := h.service.EnsureMember(ctx, u.ID, u.UserName, u.FirstName, u.LastName); err != nil {
			log.WithError(err).WithField("user_id", u.ID).Warn("EnsureMember failed")
		}
	}
}
