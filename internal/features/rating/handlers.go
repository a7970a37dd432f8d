// Package rating (handlers.go) отвечает на ответы с +N/-N и команды рейтинга.
package rating

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rating-bot/internal/common"
)

// Sender: то, что умеет отправлять сообщения (tgbotapi.BotAPI).
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NameResolver подставляет отображаемые имена в лидерборды.
type NameResolver interface {
	DisplayName(ctx context.Context, userID int64) string
}

// Кнопки клавиатуры.
const (
	ButtonMe    = "📊 Моя статистика"
	ButtonTop   = "🏆 Общий рейтинг"
	ButtonRich  = "💰 Самые щедрые"
	ButtonHate  = "😈 Хейтеры"
	ButtonDay   = "📅 Статистика за сутки"
	ButtonRules = "📜 Правила"
)

// Handler обрабатывает рейтинговые сообщения.
type Handler struct {
	ledger   *Ledger
	reports  *Reports
	names    NameResolver
	bot      Sender
	topLimit int

	laughEnabled bool
	laughPoints  int64
}

// NewHandler создаёт обработчик рейтинга.
func NewHandler(ledger *Ledger, reports *Reports, names NameResolver, bot Sender, topLimit int, laughEnabled bool, laughPoints int64) *Handler {
	if topLimit <= 0 {
		topLimit = 10
	}
	return &Handler{
		ledger:       ledger,
		reports:      reports,
		names:        names,
		bot:          bot,
		topLimit:     topLimit,
		laughEnabled: laughEnabled,
		laughPoints:  laughPoints,
	}
}

// HandleReply разбирает ответ на чужое сообщение. Возвращает true,
// если сообщение было рейтинговым (сумма или смех).
func (h *Handler) HandleReply(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.From == nil || message.ReplyToMessage == nil {
		return false
	}
	target := message.ReplyToMessage.From
	if target == nil || target.IsBot {
		return false
	}

	in := Intent{
		ScopeID:   message.Chat.ID,
		VoterID:   message.From.ID,
		TargetID:  target.ID,
		Timestamp: int64(message.Date),
		Source:    SourceText,
	}
	if amount, ok := ParseAmount(message.Text); ok {
		in.Amount = amount
	} else if h.laughEnabled && IsLaughter(message.Text) {
		in.Amount = h.laughPoints
		in.Source = SourceLaugh
	} else {
		return false
	}

	out, err := h.ledger.Apply(ctx, in)
	h.respond(ctx, message, target, in, out, err)
	return true
}

func (h *Handler) respond(ctx context.Context, message *tgbotapi.Message, target *tgbotapi.User, in Intent, out *Outcome, err error) {
	chatID := message.Chat.ID
	replyTo := message.MessageID

	if err != nil {
		// на смех отказами не отвечаем, чтобы не заспамить чат
		if out.Quiet || in.Source == SourceLaugh {
			return
		}
		h.reply(chatID, replyTo, rejectionText(err, h.ledger.Rules()))
		return
	}

	if in.Source == SourceText {
		emoji := "👍"
		if in.Amount < 0 {
			emoji = "👎"
		}
		h.reply(chatID, replyTo, fmt.Sprintf("%s %s → %s\n⭐ Рейтинг: %d",
			emoji, common.FormatSignedPoints(in.Amount), html.EscapeString(h.name(ctx, target.ID)), out.NewTargetTotal))
	}

	if out.LowBalanceWarning {
		h.reply(chatID, replyTo, randomLowBalancePhrase())
	}

	if out.ShameTriggered {
		name := target.FirstName
		if name == "" {
			name = h.name(ctx, target.ID)
		}
		h.send(chatID, fmt.Sprintf("🧻 <b>ПОЗОР</b>\n%s набрал больше −%d за сутки.",
			html.EscapeString(name), -h.ledger.Rules().ShameThreshold))
	}
}

func rejectionText(err error, rules Rules) string {
	switch {
	case errors.Is(err, common.ErrSelfTarget):
		return "🤡 Сам себе — запрещено."
	case errors.Is(err, common.ErrInsufficientQuota):
		return "😏 Баллов не хватит, щедрец."
	case errors.Is(err, common.ErrNothingToReclaim):
		return "😈 Сначала дай — потом забирай."
	case errors.Is(err, common.ErrAmountOutOfRange):
		return fmt.Sprintf("🙅 За раз можно от %d до %d.", rules.MinStep, rules.MaxStep)
	}
	return "⚠️ Рейтинг сейчас недоступен, попробуй позже."
}

// Keyboard: клавиатура с командами рейтинга.
func Keyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonMe),
			tgbotapi.NewKeyboardButton(ButtonTop),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonRich),
			tgbotapi.NewKeyboardButton(ButtonHate),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonDay),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonRules),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// HandleStart: /start.
func (h *Handler) HandleStart(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "✅ Бот жив. Рейтинг работает.")
	msg.ReplyMarkup = Keyboard()
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки клавиатуры")
	}
}

// HandleMe: /me, статистика участника.
func (h *Handler) HandleMe(ctx context.Context, chatID, userID int64) {
	s, err := h.reports.Summary(ctx, chatID, userID)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка получения статистики")
		h.send(chatID, rejectionText(err, h.ledger.Rules()))
		return
	}
	h.send(chatID, FormatSummary(s))
}

// FormatSummary: текст для /me.
func FormatSummary(s *Summary) string {
	return fmt.Sprintf(
		"📊 <b>Твоя статистика</b>\n"+
			"⭐ Рейтинг: %d\n"+
			"➕ Осталось плюсов: %d\n"+
			"➖ Минус-баланс: %d\n"+
			"💰 Отдал всего: %d\n"+
			"😈 Забрал всего: %d",
		s.TotalRating, s.PlusRemaining, s.MinusFreeRemaining, s.GivenTotal, s.TakenTotal,
	)
}

// HandleTop: /top.
func (h *Handler) HandleTop(ctx context.Context, chatID int64) {
	entries, err := h.reports.TopByRating(ctx, chatID, h.topLimit)
	h.sendBoard(ctx, chatID, "🏆 <b>Топ рейтинга</b>", entries, err)
}

// HandleRich: /rich, самые щедрые за всё время.
func (h *Handler) HandleRich(ctx context.Context, chatID int64) {
	entries, err := h.reports.TopGivers(ctx, chatID, time.Time{}, h.topLimit)
	h.sendBoard(ctx, chatID, "💰 <b>Самые щедрые</b>", entries, err)
}

// HandleHate: /hate, кто больше всех забирал.
func (h *Handler) HandleHate(ctx context.Context, chatID int64) {
	entries, err := h.reports.TopTakers(ctx, chatID, time.Time{}, h.topLimit)
	h.sendBoard(ctx, chatID, "😈 <b>Хейтеры</b>", entries, err)
}

// HandleDay: /day, итоги текущих суток.
func (h *Handler) HandleDay(ctx context.Context, chatID int64) {
	text, err := h.DayReport(ctx, chatID, h.ledger.now())
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отчёта за сутки")
		h.send(chatID, rejectionText(err, h.ledger.Rules()))
		return
	}
	h.send(chatID, text)
}

// DayReport: текст итогов дня.
func (h *Handler) DayReport(ctx context.Context, chatID int64, day time.Time) (string, error) {
	entries, err := h.reports.DayDeltas(ctx, chatID, day)
	if err != nil {
		return "", err
	}
	return h.formatDay(ctx, entries), nil
}

func (h *Handler) formatDay(ctx context.Context, entries []Entry) string {
	if len(entries) == 0 {
		return "😴 Сегодня тихо."
	}
	var sb strings.Builder
	sb.WriteString("📅 <b>Сутки</b>\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s: %+d\n", html.EscapeString(h.name(ctx, e.UserID)), e.Value))
	}
	return sb.String()
}

// SendDigest рассылает итоги дня во все чаты, где в этот день были переводы.
func (h *Handler) SendDigest(ctx context.Context, day time.Time) error {
	scopes, err := h.reports.ActiveScopes(ctx, day)
	if err != nil {
		return err
	}
	for _, chatID := range scopes {
		entries, err := h.reports.DayDeltas(ctx, chatID, day)
		if err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Ошибка дайджеста")
			continue
		}
		if len(entries) == 0 {
			continue
		}
		h.send(chatID, h.formatDay(ctx, entries))
	}
	log.WithField("chats", len(scopes)).Info("Дайджест за сутки разослан")
	return nil
}

// HandleRules: /rules.
func (h *Handler) HandleRules(chatID int64) {
	h.send(chatID, RulesText(h.ledger.Rules()))
}

// RulesText: правила с текущими лимитами.
func RulesText(r Rules) string {
	return fmt.Sprintf(
		"📜 <b>Система баллов</b>\n\n"+
			"➕ У каждого %d плюсов в сутки\n"+
			"➖ %d минусов — бесплатно\n"+
			"♻️ Потом минусы возвращают плюсы\n"+
			"🚫 Нельзя забирать у тех, кому не давал\n"+
			"🤡 Сам себе — нельзя\n",
		r.PlusCap, r.MinusFreeCap,
	)
}

// HandleHelp: /help.
func (h *Handler) HandleHelp(chatID int64) {
	h.send(chatID, "Ответь на сообщение с <b>+N</b> или <b>-N</b>, чтобы изменить рейтинг.\n\n"+
		"/me — моя статистика\n"+
		"/top — общий рейтинг\n"+
		"/rich — самые щедрые\n"+
		"/hate — хейтеры\n"+
		"/day — статистика за сутки\n"+
		"/rules — правила")
}

func (h *Handler) sendBoard(ctx context.Context, chatID int64, title string, entries []Entry, err error) {
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка лидерборда")
		h.send(chatID, rejectionText(err, h.ledger.Rules()))
		return
	}
	h.send(chatID, h.formatBoard(ctx, title, entries))
}

func (h *Handler) formatBoard(ctx context.Context, title string, entries []Entry) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	if len(entries) == 0 {
		sb.WriteString("Пока пусто.")
		return sb.String()
	}
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("%d. %s — %d\n", i+1, html.EscapeString(h.name(ctx, e.UserID)), e.Value))
	}
	return sb.String()
}

func (h *Handler) name(ctx context.Context, userID int64) string {
	if h.names == nil {
		return fmt.Sprintf("id%d", userID)
	}
	return h.names.DisplayName(ctx, userID)
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

func (h *Handler) reply(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки ответа")
	}
}
