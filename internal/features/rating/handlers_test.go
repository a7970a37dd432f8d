package rating

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

type staticNames map[int64]string

func (n staticNames) DisplayName(_ context.Context, userID int64) string {
	if name, ok := n[userID]; ok {
		return name
	}
	return fmt.Sprintf("id%d", userID)
}

func newTestHandler(t *testing.T, rules Rules) (*Handler, *fakeSender, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	l := newTestLedger(t, store, rules)
	r := newTestReports(store, rules)
	sender := &fakeSender{}
	names := staticNames{1: "@alice", 2: "Боб <b>", 3: "@carol"}
	return NewHandler(l, r, names, sender, 10, true, 1), sender, store
}

func replyMessage(voter, target int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 100,
		From:      &tgbotapi.User{ID: voter, FirstName: "Voter"},
		Chat:      &tgbotapi.Chat{ID: chat, Type: "supergroup"},
		Date:      int(day1.Unix()),
		Text:      text,
		ReplyToMessage: &tgbotapi.Message{
			MessageID: 99,
			From:      &tgbotapi.User{ID: target, FirstName: "Боб"},
		},
	}
}

func TestHandleReplyAppliesAmount(t *testing.T) {
	h, sender, store := newTestHandler(t, DefaultRules())

	handled := h.HandleReply(context.Background(), replyMessage(1, 2, "держи +10"))
	require.True(t, handled)

	assert.Equal(t, int64(10), account(t, store, 2).TotalRating)
	texts := sender.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "+10 баллов")
	assert.Contains(t, texts[0], "Боб &lt;b&gt;")
	assert.Contains(t, texts[0], "⭐ Рейтинг: 10")
	assert.Equal(t, 100, sender.sent[0].ReplyToMessageID)
}

func TestHandleReplyRejections(t *testing.T) {
	tests := []struct {
		name   string
		voter  int64
		target int64
		text   string
		want   string
	}{
		{"сам себе", 1, 1, "+5", "🤡 Сам себе — запрещено."},
		{"нечего забирать", 3, 2, "-60", "😈 Сначала дай — потом забирай."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sender, _ := newTestHandler(t, DefaultRules())
			require.True(t, h.HandleReply(context.Background(), replyMessage(tt.voter, tt.target, tt.text)))
			assert.Equal(t, []string{tt.want}, sender.texts())
		})
	}
}

func TestHandleReplyInsufficientQuota(t *testing.T) {
	h, sender, _ := newTestHandler(t, DefaultRules())
	require.True(t, h.HandleReply(context.Background(), replyMessage(1, 2, "+100")))
	require.True(t, h.HandleReply(context.Background(), replyMessage(1, 3, "+1")))

	texts := sender.texts()
	assert.Equal(t, "😏 Баллов не хватит, щедрец.", texts[len(texts)-1])
}

func TestHandleReplyOutOfRangeIgnoredSilently(t *testing.T) {
	h, sender, store := newTestHandler(t, DefaultRules())
	require.True(t, h.HandleReply(context.Background(), replyMessage(1, 2, "+500")))
	assert.Empty(t, sender.texts())
	assert.Empty(t, store.transfers)
}

func TestHandleReplyLowBalanceAndShame(t *testing.T) {
	rules := DefaultRules()
	rules.ShameThreshold = -50
	h, sender, _ := newTestHandler(t, rules)

	require.True(t, h.HandleReply(context.Background(), replyMessage(1, 2, "+60")))
	texts := sender.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, lowBalancePhrases, texts[1])

	require.True(t, h.HandleReply(context.Background(), replyMessage(3, 2, "-50")))
	texts = sender.texts()
	last := texts[len(texts)-1]
	assert.True(t, strings.HasPrefix(last, "🧻 <b>ПОЗОР</b>\nБоб"), last)
	assert.Contains(t, last, "−50")
}

func TestHandleReplyLaughter(t *testing.T) {
	h, sender, store := newTestHandler(t, DefaultRules())

	require.True(t, h.HandleReply(context.Background(), replyMessage(1, 2, "ахахаха")))
	assert.Equal(t, int64(1), account(t, store, 2).TotalRating)
	assert.Equal(t, SourceLaugh, store.transfers[0].Source)
	assert.Empty(t, sender.texts())

	// смех самому себе: молча
	require.True(t, h.HandleReply(context.Background(), replyMessage(1, 1, "лол")))
	assert.Empty(t, sender.texts())
}

func TestHandleReplyIgnoresPlainMessages(t *testing.T) {
	h, sender, _ := newTestHandler(t, DefaultRules())

	assert.False(t, h.HandleReply(context.Background(), replyMessage(1, 2, "согласен")))

	msg := replyMessage(1, 2, "+5")
	msg.ReplyToMessage = nil
	assert.False(t, h.HandleReply(context.Background(), msg))

	msg = replyMessage(1, 2, "+5")
	msg.ReplyToMessage.From.IsBot = true
	assert.False(t, h.HandleReply(context.Background(), msg))

	assert.Empty(t, sender.texts())
}

func TestBoardsAndDayReport(t *testing.T) {
	h, sender, _ := newTestHandler(t, DefaultRules())
	ctx := context.Background()

	text, err := h.DayReport(ctx, chat, day1)
	require.NoError(t, err)
	assert.Equal(t, "😴 Сегодня тихо.", text)

	h.HandleReply(ctx, replyMessage(1, 3, "+20"))
	h.HandleReply(ctx, replyMessage(2, 3, "-5"))

	h.HandleTop(ctx, chat)
	h.HandleRich(ctx, chat)
	h.HandleHate(ctx, chat)
	h.HandleDay(ctx, chat)

	texts := sender.texts()
	require.Len(t, texts, 6)
	assert.Equal(t, "🏆 <b>Топ рейтинга</b>\n1. @carol — 15\n2. @alice — 0\n3. Боб &lt;b&gt; — 0\n", texts[2])
	assert.Equal(t, "💰 <b>Самые щедрые</b>\n1. @alice — 20\n", texts[3])
	assert.Equal(t, "😈 <b>Хейтеры</b>\n1. Боб &lt;b&gt; — 5\n", texts[4])
	assert.Equal(t, "📅 <b>Сутки</b>\n@carol: +15\n", texts[5])
}

func TestSendDigest(t *testing.T) {
	h, sender, _ := newTestHandler(t, DefaultRules())
	ctx := context.Background()

	require.NoError(t, h.SendDigest(ctx, day1))
	assert.Empty(t, sender.texts())

	h.HandleReply(ctx, replyMessage(1, 2, "+7"))
	require.NoError(t, h.SendDigest(ctx, day1))

	texts := sender.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "📅 <b>Сутки</b>\nБоб &lt;b&gt;: +7\n", texts[1])
	assert.Equal(t, chat, sender.sent[1].ChatID)
}

func TestMeAndRules(t *testing.T) {
	h, sender, _ := newTestHandler(t, DefaultRules())
	ctx := context.Background()

	h.HandleMe(ctx, chat, 1)
	h.HandleRules(chat)
	h.HandleStart(chat)

	texts := sender.texts()
	require.Len(t, texts, 3)
	assert.Contains(t, texts[0], "➕ Осталось плюсов: 100")
	assert.Contains(t, texts[1], "➕ У каждого 100 плюсов в сутки")
	assert.Equal(t, "✅ Бот жив. Рейтинг работает.", texts[2])
	_, ok := sender.sent[2].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, ok)
}
