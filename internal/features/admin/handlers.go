// Package admin (handlers.go) обрабатывает команды администратора в личке.
// Поток: /login <пароль> → /adjust, /resetquota → /logout.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rating-bot/internal/common"
	"serotonyl.ru/rating-bot/internal/features/rating"
)

// Ledger: операции рейтинга, доступные администратору.
type Ledger interface {
	AdminAdjust(ctx context.Context, scopeID, userID, amount int64) (*rating.Account, error)
	ResetQuota(ctx context.Context, scopeID, userID int64) (*rating.Account, error)
}

// Handler обрабатывает админ-команды.
type Handler struct {
	service *Service
	ledger  Ledger
	bot     rating.Sender
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, ledger Ledger, bot rating.Sender) *Handler {
	return &Handler{service: service, ledger: ledger, bot: bot}
}

const usage = "Команды администратора:\n" +
	"/login &lt;пароль&gt;\n" +
	"/adjust &lt;chat_id&gt; &lt;user_id&gt; &lt;±баллы&gt;\n" +
	"/resetquota &lt;chat_id&gt; &lt;user_id&gt;\n" +
	"/logout"

// HandleAdminMessage обрабатывает сообщение в личке.
// Возвращает true, если это была админ-команда.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID, userID int64, command string, args []string) bool {
	switch command {
	case "login":
		h.handleLogin(chatID, userID, args)
	case "logout":
		h.service.Logout(userID)
		h.sendMessage(chatID, "👋 Сессия закрыта.")
	case "adjust":
		if h.authorized(chatID, userID) {
			h.handleAdjust(ctx, chatID, args)
		}
	case "resetquota":
		if h.authorized(chatID, userID) {
			h.handleResetQuota(ctx, chatID, args)
		}
	case "admin":
		h.sendMessage(chatID, usage)
	default:
		return false
	}
	return true
}

func (h *Handler) handleLogin(chatID, userID int64, args []string) {
	if len(args) != 1 {
		h.sendMessage(chatID, "🔐 Использование: /login &lt;пароль&gt;")
		return
	}
	session, err := h.service.Login(userID, args[0])
	if err != nil {
		h.sendMessage(chatID, "❌ "+err.Error())
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Вход выполнен. Сессия до %s.\n\n%s",
		session.ExpiresAt.Format("15:04"), usage))
}

func (h *Handler) authorized(chatID, userID int64) bool {
	_, err := h.service.Authorize(userID)
	if err == nil {
		return true
	}
	if errors.Is(err, common.ErrNotAdmin) {
		// Чужим не отвечаем вообще
		return false
	}
	h.sendMessage(chatID, "🔐 "+err.Error())
	return false
}

func (h *Handler) handleAdjust(ctx context.Context, chatID int64, args []string) {
	if len(args) != 3 {
		h.sendMessage(chatID, "Использование: /adjust &lt;chat_id&gt; &lt;user_id&gt; &lt;±баллы&gt;")
		return
	}
	nums, err := parseInts(args)
	if err != nil {
		h.sendMessage(chatID, "❌ "+err.Error())
		return
	}

	account, err := h.ledger.AdminAdjust(ctx, nums[0], nums[1], nums[2])
	if err != nil {
		log.WithError(err).Error("Ошибка ручной корректировки рейтинга")
		h.sendMessage(chatID, "❌ "+err.Error())
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ %s для id%d в чате %d.\n⭐ Рейтинг: %s",
		common.FormatSignedPoints(nums[2]), nums[1], nums[0], common.FormatNumber(account.TotalRating)))
}

func (h *Handler) handleResetQuota(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		h.sendMessage(chatID, "Использование: /resetquota &lt;chat_id&gt; &lt;user_id&gt;")
		return
	}
	nums, err := parseInts(args)
	if err != nil {
		h.sendMessage(chatID, "❌ "+err.Error())
		return
	}

	account, err := h.ledger.ResetQuota(ctx, nums[0], nums[1])
	if err != nil {
		log.WithError(err).Error("Ошибка сброса лимитов")
		h.sendMessage(chatID, "❌ "+err.Error())
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Лимиты id%d сброшены: +%d / −%d.",
		nums[1], account.PlusRemaining, account.MinusFreeRemaining))
}

func parseInts(args []string) ([]int64, error) {
	out := make([]int64, 0, len(args))
	for _, a := range args {
		n, err := strconv.ParseInt(strings.TrimPrefix(a, "+"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("не число: %q", a)
		}
		out = append(out, n)
	}
	return out, nil
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения администратору")
	}
}
