// Package filters решает, в каких чатах бот вообще работает.
package filters

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает групповые чаты из ALLOWED_CHAT_IDS
// (пустой список: любые группы) и личку.
type ChatFilter struct {
	allowed map[int64]struct{}
}

func NewChatFilter(allowedChatIDs []int64) *ChatFilter {
	f := &ChatFilter{allowed: make(map[int64]struct{}, len(allowedChatIDs))}
	for _, id := range allowedChatIDs {
		f.allowed[id] = struct{}{}
	}
	return f
}

func (f *ChatFilter) CheckAccess(message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("nil message.From (service/channel message?)")
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
	})

	// 1) Личка: там только справка и админка
	if message.Chat.IsPrivate() {
		logger.Debug("allow: private")
		return true
	}

	// 2) Группы
	if message.Chat.IsGroup() || message.Chat.IsSuperGroup() {
		if len(f.allowed) == 0 {
			return true
		}
		if _, ok := f.allowed[message.Chat.ID]; ok {
			logger.Debug("allow: listed chat")
			return true
		}
		logger.Info("deny: chat not in ALLOWED_CHAT_IDS")
		return false
	}

	// 3) Каналы и прочее игнорируем
	logger.Debug("deny: unsupported chat type")
	return false
}
