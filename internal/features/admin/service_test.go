package admin

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/rating-bot/internal/common"
	"serotonyl.ru/rating-bot/internal/features/rating"
)

const adminID = 42

func newTestService(t *testing.T, password string) (*Service, *time.Time) {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s := NewService(hash, time.Hour, func(id int64) bool { return id == adminID })
	s.now = func() time.Time { return now }
	return s, &now
}

func TestHashPasswordFormat(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"))

	assert.True(t, VerifyPassword("secret", hash))
	assert.False(t, VerifyPassword("Secret", hash))
	assert.False(t, VerifyPassword("secret", "not-a-hash"))

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestLoginAndSessionExpiry(t *testing.T) {
	s, now := newTestService(t, "secret")

	_, err := s.Authorize(adminID)
	require.ErrorIs(t, err, common.ErrSessionExpired)

	session, err := s.Login(adminID, "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	_, err = s.Authorize(adminID)
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	_, err = s.Authorize(adminID)
	require.ErrorIs(t, err, common.ErrSessionExpired)
}

func TestLoginRejectsStrangers(t *testing.T) {
	s, _ := newTestService(t, "secret")
	_, err := s.Login(7, "secret")
	require.ErrorIs(t, err, common.ErrNotAdmin)
	_, err = s.Authorize(7)
	require.ErrorIs(t, err, common.ErrNotAdmin)
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	s := NewService("", time.Hour, func(int64) bool { return true })
	_, err := s.Login(adminID, "anything")
	require.ErrorIs(t, err, common.ErrAdminDisabled)
}

func TestLoginAttemptsLimit(t *testing.T) {
	s, now := newTestService(t, "secret")

	for i := 0; i < maxFailedAttempts; i++ {
		_, err := s.Login(adminID, "wrong")
		require.ErrorIs(t, err, common.ErrWrongPassword)
	}
	// Даже верный пароль не пускает, пока окно не истекло
	_, err := s.Login(adminID, "secret")
	require.ErrorIs(t, err, common.ErrTooManyAttempts)

	*now = now.Add(attemptsWindow)
	_, err = s.Login(adminID, "secret")
	require.NoError(t, err)
}

func TestLogout(t *testing.T) {
	s, _ := newTestService(t, "secret")
	_, err := s.Login(adminID, "secret")
	require.NoError(t, err)
	s.Logout(adminID)
	_, err = s.Authorize(adminID)
	require.ErrorIs(t, err, common.ErrSessionExpired)
}

type fakeSender struct{ sent []string }

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func TestHandlerAdjustRequiresSession(t *testing.T) {
	s, _ := newTestService(t, "secret")
	ledger, err := rating.NewLedger(rating.NewMemoryStore(), rating.DefaultRules(), time.UTC, 1)
	require.NoError(t, err)
	sender := &fakeSender{}
	h := NewHandler(s, ledger, sender)
	ctx := context.Background()

	assert.True(t, h.HandleAdminMessage(ctx, adminID, adminID, "adjust", []string{"-100", "5", "+30"}))
	assert.Contains(t, sender.last(), common.ErrSessionExpired.Error())

	h.HandleAdminMessage(ctx, adminID, adminID, "login", []string{"secret"})
	assert.Contains(t, sender.last(), "Вход выполнен")

	h.HandleAdminMessage(ctx, adminID, adminID, "adjust", []string{"-100", "5", "+30"})
	assert.Contains(t, sender.last(), "Рейтинг: 30")

	h.HandleAdminMessage(ctx, adminID, adminID, "resetquota", []string{"-100", "5"})
	assert.Contains(t, sender.last(), "+100 / −50")

	h.HandleAdminMessage(ctx, adminID, adminID, "adjust", []string{"-100", "x", "1"})
	assert.Contains(t, sender.last(), "не число")

	assert.False(t, h.HandleAdminMessage(ctx, adminID, adminID, "top", nil))
}

func TestHandlerIgnoresStrangers(t *testing.T) {
	s, _ := newTestService(t, "secret")
	sender := &fakeSender{}
	h := NewHandler(s, nil, sender)

	assert.True(t, h.HandleAdminMessage(context.Background(), 7, 7, "adjust", []string{"1", "2", "3"}))
	assert.Empty(t, sender.sent)
}
