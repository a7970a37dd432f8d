package rating

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"serotonyl.ru/rating-bot/internal/common"
)

// exerciseStore гоняет одинаковый сценарий на любой реализации Store.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	at := day1

	_, err := s.GetAccount(ctx, chat, 1)
	require.ErrorIs(t, err, common.ErrAccountNotFound)

	err = s.InTx(ctx, chat, func(tx Tx) error {
		require.NoError(t, tx.SaveAccount(ctx, &Account{
			ScopeID: chat, UserID: 1, TotalRating: 5, PlusRemaining: 90, MinusFreeRemaining: 50,
			LastResetDay: "2026-10-18", CreatedAt: at, UpdatedAt: at,
		}))
		require.NoError(t, tx.SetGivenBalance(ctx, chat, 1, 2, 10))
		require.NoError(t, tx.AppendTransfer(ctx, &Transfer{
			ID: 1, ScopeID: chat, GiverID: 1, ReceiverID: 2, Amount: 10, Source: SourceText, CreatedAt: at,
		}))
		require.NoError(t, tx.AppendTransfer(ctx, &Transfer{
			ID: 2, ScopeID: chat, GiverID: 3, ReceiverID: 2, Amount: -4, Source: SourceText, CreatedAt: at.Add(time.Hour),
		}))

		// внутри транзакции видны свои записи
		a, err := tx.GetAccount(ctx, chat, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(90), a.PlusRemaining)
		sum, err := tx.SumTransfers(ctx, TransferFilter{ScopeID: chat, ReceiverID: int64Ptr(2)})
		require.NoError(t, err)
		assert.Equal(t, int64(6), sum)
		return nil
	})
	require.NoError(t, err)

	a, err := s.GetAccount(ctx, chat, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.TotalRating)
	assert.Equal(t, "2026-10-18", a.LastResetDay)

	given, err := s.GivenBalance(ctx, chat, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(10), given)

	given, err = s.GivenBalance(ctx, chat, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), given)

	neg, err := s.SumTransfers(ctx, TransferFilter{ScopeID: chat, ReceiverID: int64Ptr(2), Sign: SignNegative})
	require.NoError(t, err)
	assert.Equal(t, int64(-4), neg)

	late, err := s.SumTransfers(ctx, TransferFilter{ScopeID: chat, Since: at.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, int64(-4), late)

	early, err := s.SumTransfers(ctx, TransferFilter{ScopeID: chat, Until: at.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, int64(10), early)

	aggs, err := s.AggregateTransfers(ctx, TransferFilter{ScopeID: chat}, ByGiver)
	require.NoError(t, err)
	assert.Equal(t, []Aggregate{{UserID: 1, Sum: 10}, {UserID: 3, Sum: -4}}, aggs)

	aggs, err = s.AggregateTransfers(ctx, TransferFilter{ScopeID: chat}, ByReceiver)
	require.NoError(t, err)
	assert.Equal(t, []Aggregate{{UserID: 2, Sum: 6}}, aggs)

	scopes, err := s.ListScopes(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, []int64{chat}, scopes)

	// ошибка внутри fn: ничего не фиксируется
	boom := errors.New("boom")
	err = s.InTx(ctx, chat, func(tx Tx) error {
		require.NoError(t, tx.SaveAccount(ctx, &Account{
			ScopeID: chat, UserID: 1, TotalRating: 999, LastResetDay: "2026-10-18", CreatedAt: at, UpdatedAt: at,
		}))
		require.NoError(t, tx.AppendTransfer(ctx, &Transfer{
			ID: 3, ScopeID: chat, GiverID: 1, ReceiverID: 2, Amount: 1, Source: SourceText, CreatedAt: at,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err = s.GetAccount(ctx, chat, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.TotalRating)

	all, err := s.SumTransfers(ctx, TransferFilter{ScopeID: chat})
	require.NoError(t, err)
	assert.Equal(t, int64(6), all)

	accounts, err := s.ListAccounts(ctx, chat)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(1), accounts[0].UserID)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func openTestSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "rating.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("sqlite недоступен (нужен cgo): %v", err)
	}
	require.NoError(t, db.AutoMigrate(SQLiteModels()...))
	return db
}

func TestGormRepository(t *testing.T) {
	exerciseStore(t, NewGormRepository(openTestSQLite(t)))
}

func TestLedgerOnGormRepository(t *testing.T) {
	store := NewGormRepository(openTestSQLite(t))
	l := newTestLedger(t, store, DefaultRules())

	for i := 0; i < 3; i++ {
		apply(t, l, 1, 2, 30)
	}
	out := apply(t, l, 1, 2, -60)
	assert.Equal(t, int64(30), out.NewTargetTotal)

	a := account(t, store, 1)
	assert.Equal(t, int64(20), a.PlusRemaining)
	assert.Equal(t, int64(0), a.MinusFreeRemaining)

	given, err := store.GivenBalance(context.Background(), chat, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(80), given)
}

func TestWhereTransfers(t *testing.T) {
	since := day1
	where, args := whereTransfers(TransferFilter{
		ScopeID:    chat,
		ReceiverID: int64Ptr(2),
		Since:      since,
		Sign:       SignNegative,
	})
	assert.Equal(t, "chat_id = $1 AND receiver_id = $2 AND created_at >= $3 AND amount < 0", where)
	assert.Equal(t, []any{chat, int64(2), since}, args)

	where, args = whereTransfers(TransferFilter{ScopeID: chat})
	assert.Equal(t, "chat_id = $1", where)
	assert.Equal(t, []any{chat}, args)
}
