// Package bot содержит главный модуль бота: запуск polling и маршрутизацию апдейтов.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rating-bot/internal/bot/filters"
	"serotonyl.ru/rating-bot/internal/bot/middleware"
	"serotonyl.ru/rating-bot/internal/features/admin"
	"serotonyl.ru/rating-bot/internal/features/members"
	"serotonyl.ru/rating-bot/internal/features/rating"
	"serotonyl.ru/rating-bot/internal/metrics"
)

// API: часть tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	rating.Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Options: настройки polling.
type Options struct {
	BotUsername    string
	MaxInflight    int
	UpdateTimeout  int
	AdminAvailable bool
}

// Bot: главная структура бота, объединяющая все компоненты.
type Bot struct {
	api  API
	opts Options

	chatFilter *filters.ChatFilter
	limiter    middleware.Limiter

	memberHandler *members.Handler
	ratingHandler *rating.Handler
	adminHandler  *admin.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api API,
	opts Options,
	chatFilter *filters.ChatFilter,
	limiter middleware.Limiter,
	memberHandler *members.Handler,
	ratingHandler *rating.Handler,
	adminHandler *admin.Handler,
) *Bot {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 64
	}
	return &Bot{
		api:           api,
		opts:          opts,
		chatFilter:    chatFilter,
		limiter:       limiter,
		memberHandler: memberHandler,
		ratingHandler: ratingHandler,
		adminHandler:  adminHandler,
		parser:        NewCommandParser(opts.BotUsername),
		inflight:      make(chan struct{}, opts.MaxInflight),
	}
}

// Start запускает polling обновлений от Telegram. Блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.opts.UpdateTimeout

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.opts.MaxInflight,
		"timeout_sec":  b.opts.UpdateTimeout,
		"username":     b.opts.BotUsername,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.drain()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.drain()
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// drain ждёт, пока допишутся начатые обработчики.
func (b *Bot) drain() {
	for i := 0; i < cap(b.inflight); i++ {
		b.inflight <- struct{}{}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	message := update.Message
	if message == nil {
		metrics.BotUpdates.WithLabelValues("skipped").Inc()
		return
	}

	// Вступление новых участников
	if len(message.NewChatMembers) > 0 {
		if b.chatFilter.CheckAccess(message) {
			b.memberHandler.HandleNewChatMembers(ctx, message.NewChatMembers)
			metrics.BotUpdates.WithLabelValues("new_members").Inc()
		}
		return
	}

	if message.Text == "" {
		metrics.BotUpdates.WithLabelValues("skipped").Inc()
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(message) {
		metrics.BotUpdates.WithLabelValues("filtered").Inc()
		return
	}

	if b.limiter != nil && !b.limiter.Allow(ctx, message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		metrics.BotUpdates.WithLabelValues("rate_limited").Inc()
		return
	}

	b.memberHandler.Track(ctx, message)

	chatID := message.Chat.ID
	userID := message.From.ID

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		cmd, isCommand = buttonCommand(message.Text)
	}

	if message.Chat.IsPrivate() {
		b.routePrivate(ctx, chatID, userID, cmd, args, isCommand)
		return
	}

	// Ответ с +N/-N или смехом
	if message.ReplyToMessage != nil && b.ratingHandler.HandleReply(ctx, message) {
		metrics.BotUpdates.WithLabelValues("reply").Inc()
		return
	}

	if isCommand {
		log.WithFields(log.Fields{
			"cmd":  cmd,
			"args": args,
		}).Debug("routing command")
		if b.routeCommand(ctx, chatID, userID, cmd) {
			metrics.BotUpdates.WithLabelValues("command").Inc()
			return
		}
	}
	metrics.BotUpdates.WithLabelValues("ignored").Inc()
}

// routeCommand маршрутизирует групповую команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string) bool {
	switch cmd {
	case "start":
		b.ratingHandler.HandleStart(chatID)
	case "help":
		b.ratingHandler.HandleHelp(chatID)
	case "me":
		b.ratingHandler.HandleMe(ctx, chatID, userID)
	case "top":
		b.ratingHandler.HandleTop(ctx, chatID)
	case "rich":
		b.ratingHandler.HandleRich(ctx, chatID)
	case "hate":
		b.ratingHandler.HandleHate(ctx, chatID)
	case "day":
		b.ratingHandler.HandleDay(ctx, chatID)
	case "rules":
		b.ratingHandler.HandleRules(chatID)
	default:
		return false
	}
	return true
}

// routePrivate обслуживает личку: админка, справка и правила.
// Рейтинг живёт в группах, поэтому /me и лидерборды тут не работают.
func (b *Bot) routePrivate(ctx context.Context, chatID, userID int64, cmd string, args []string, isCommand bool) {
	if !isCommand {
		metrics.BotUpdates.WithLabelValues("ignored").Inc()
		return
	}
	if b.opts.AdminAvailable && b.adminHandler != nil &&
		b.adminHandler.HandleAdminMessage(ctx, chatID, userID, cmd, args) {
		metrics.BotUpdates.WithLabelValues("admin").Inc()
		return
	}
	switch cmd {
	case "start", "help":
		b.ratingHandler.HandleHelp(chatID)
	case "rules":
		b.ratingHandler.HandleRules(chatID)
	case "me", "top", "rich", "hate", "day":
		b.sendMessage(chatID, "👥 Рейтинг считается в группе. Напиши команду там.")
	default:
		metrics.BotUpdates.WithLabelValues("ignored").Inc()
		return
	}
	metrics.BotUpdates.WithLabelValues("command").Inc()
}

// buttonCommand переводит кнопку клавиатуры в команду.
func buttonCommand(text string) (string, bool) {
	switch text {
	case rating.ButtonMe:
		return "me", true
	case rating.ButtonTop:
		return "top", true
	case rating.ButtonRich:
		return "rich", true
	case rating.ButtonHate:
		return "hate", true
	case rating.ButtonDay:
		return "day", true
	case rating.ButtonRules:
		return "rules", true
	}
	return "", false
}

// sendMessage: утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
