package members

import (
	"context"
	"path/filepath"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"serotonyl.ru/rating-bot/internal/common"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		m    Member
		want string
	}{
		{Member{UserID: 1, Username: "alice", FirstName: "Alice"}, "@alice"},
		{Member{UserID: 2, FirstName: "Боб", LastName: "Иванов"}, "Боб Иванов"},
		{Member{UserID: 3, FirstName: "Кэрол"}, "Кэрол"},
		{Member{UserID: 4}, "id4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.m.DisplayName())
	}
}

func exerciseService(t *testing.T, store Store) {
	ctx := context.Background()
	s := NewService(store)

	assert.Equal(t, "id7", s.DisplayName(ctx, 7))
	_, err := s.GetByUserID(ctx, 7)
	require.ErrorIs(t, err, common.ErrUserNotFound)

	require.NoError(t, s.EnsureMember(ctx, 7, "", "Дима", ""))
	assert.Equal(t, "Дима", s.DisplayName(ctx, 7))

	require.NoError(t, s.EnsureMember(ctx, 7, "dima", "Дима", ""))
	assert.Equal(t, "@dima", s.DisplayName(ctx, 7))

	m, err := s.GetByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "dima", m.Username)
}

func TestServiceMemory(t *testing.T) {
	exerciseService(t, NewMemoryStore())
}

func TestServiceGorm(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "members.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("sqlite недоступен (нужен cgo): %v", err)
	}
	require.NoError(t, db.AutoMigrate(SQLiteModels()...))
	exerciseService(t, NewGormRepository(db))
}

func TestTrackSkipsBots(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandler(NewService(store))

	h.Track(context.Background(), &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1, FirstName: "Alice"},
		ReplyToMessage: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 2, FirstName: "Bot", IsBot: true},
		},
	})
	h.HandleNewChatMembers(context.Background(), []tgbotapi.User{{ID: 3, FirstName: "Carol"}})

	_, err := store.GetByUserID(context.Background(), 1)
	assert.NoError(t, err)
	_, err = store.GetByUserID(context.Background(), 2)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
	_, err = store.GetByUserID(context.Background(), 3)
	assert.NoError(t, err)
}
