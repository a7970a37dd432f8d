package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"serotonyl.ru/rating-bot/internal/common"
)

// accountRow: строка rating_accounts для gorm.
type accountRow struct {
	ChatID             int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID             int64  `gorm:"primaryKey;autoIncrement:false"`
	TotalRating        int64  `gorm:"not null"`
	PlusRemaining      int64  `gorm:"not null"`
	MinusFreeRemaining int64  `gorm:"not null"`
	LastResetDay       string `gorm:"size:10;not null"`
	WarnedToday        bool   `gorm:"not null"`
	ShamedToday        bool   `gorm:"not null"`
	GivenTotal         int64  `gorm:"not null"`
	TakenTotal         int64  `gorm:"not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (accountRow) TableName() string { return "rating_accounts" }

type transferRow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false"`
	ChatID     int64     `gorm:"not null;index:idx_rating_transfers_pair,priority:1;index:idx_rating_transfers_receiver_time,priority:1"`
	GiverID    int64     `gorm:"not null;index:idx_rating_transfers_pair,priority:2"`
	ReceiverID int64     `gorm:"not null;index:idx_rating_transfers_pair,priority:3;index:idx_rating_transfers_receiver_time,priority:2"`
	Amount     int64     `gorm:"not null"`
	Source     string    `gorm:"size:16;not null"`
	CreatedAt  time.Time `gorm:"not null;index:idx_rating_transfers_receiver_time,priority:3"`
}

func (transferRow) TableName() string { return "rating_transfers" }

type givenRow struct {
	ChatID     int64 `gorm:"primaryKey;autoIncrement:false"`
	GiverID    int64 `gorm:"primaryKey;autoIncrement:false"`
	ReceiverID int64 `gorm:"primaryKey;autoIncrement:false"`
	Amount     int64 `gorm:"not null"`
	UpdatedAt  time.Time
}

func (givenRow) TableName() string { return "rating_given" }

// SQLiteModels: модели для AutoMigrate.
func SQLiteModels() []any {
	return []any{&accountRow{}, &transferRow{}, &givenRow{}}
}

func (r *accountRow) toAccount() *Account {
	return &Account{
		ScopeID:            r.ChatID,
		UserID:             r.UserID,
		TotalRating:        r.TotalRating,
		PlusRemaining:      r.PlusRemaining,
		MinusFreeRemaining: r.MinusFreeRemaining,
		LastResetDay:       r.LastResetDay,
		WarnedToday:        r.WarnedToday,
		ShamedToday:        r.ShamedToday,
		GivenTotal:         r.GivenTotal,
		TakenTotal:         r.TakenTotal,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// GormRepository: хранилище рейтинга в SQLite через gorm.
type GormRepository struct {
	gormReader
}

// NewGormRepository создаёт хранилище поверх открытого gorm.DB.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{gormReader{db: db}}
}

// InTx: транзакция gorm. SQLite пишет одним писателем, отдельная блокировка чата не нужна.
func (r *GormRepository) InTx(ctx context.Context, _ int64, fn func(tx Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{gormReader{db: tx}})
	})
}

type gormReader struct {
	db *gorm.DB
}

func (r gormReader) GetAccount(ctx context.Context, scopeID, userID int64) (*Account, error) {
	var row accountRow
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", scopeID, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения счёта (chat_id=%d, user_id=%d): %w", scopeID, userID, err)
	}
	return row.toAccount(), nil
}

func (r gormReader) ListAccounts(ctx context.Context, scopeID int64) ([]*Account, error) {
	var rows []accountRow
	if err := r.db.WithContext(ctx).Where("chat_id = ?", scopeID).Order("user_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ошибка запроса счетов: %w", err)
	}
	out := make([]*Account, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toAccount())
	}
	return out, nil
}

func (r gormReader) GivenBalance(ctx context.Context, scopeID, giverID, receiverID int64) (int64, error) {
	var rows []givenRow
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND giver_id = ? AND receiver_id = ?", scopeID, giverID, receiverID).
		Limit(1).Find(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения выданного: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Amount, nil
}

func (r gormReader) filtered(ctx context.Context, f TransferFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&transferRow{}).Where("chat_id = ?", f.ScopeID)
	if f.GiverID != nil {
		q = q.Where("giver_id = ?", *f.GiverID)
	}
	if f.ReceiverID != nil {
		q = q.Where("receiver_id = ?", *f.ReceiverID)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at < ?", f.Until.UTC())
	}
	switch f.Sign {
	case SignPositive:
		q = q.Where("amount > 0")
	case SignNegative:
		q = q.Where("amount < 0")
	}
	return q
}

func (r gormReader) SumTransfers(ctx context.Context, f TransferFilter) (int64, error) {
	var sum int64
	if err := r.filtered(ctx, f).Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("ошибка суммирования переводов: %w", err)
	}
	return sum, nil
}

func (r gormReader) AggregateTransfers(ctx context.Context, f TransferFilter, by GroupBy) ([]Aggregate, error) {
	col := "giver_id"
	if by == ByReceiver {
		col = "receiver_id"
	}
	var rows []struct {
		UserID int64
		Sum    int64
	}
	err := r.filtered(ctx, f).
		Select(col + " AS user_id, SUM(amount) AS sum").
		Group(col).Order(col).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации переводов: %w", err)
	}
	out := make([]Aggregate, 0, len(rows))
	for _, row := range rows {
		out = append(out, Aggregate{UserID: row.UserID, Sum: row.Sum})
	}
	return out, nil
}

func (r gormReader) ListScopes(ctx context.Context, since time.Time) ([]int64, error) {
	var ids []int64
	q := r.db.WithContext(ctx).Model(&transferRow{}).Distinct("chat_id").Order("chat_id")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since.UTC())
	}
	if err := q.Pluck("chat_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("ошибка запроса чатов: %w", err)
	}
	return ids, nil
}

type gormTx struct {
	gormReader
}

func (t *gormTx) SaveAccount(ctx context.Context, a *Account) error {
	row := accountRow{
		ChatID:             a.ScopeID,
		UserID:             a.UserID,
		TotalRating:        a.TotalRating,
		PlusRemaining:      a.PlusRemaining,
		MinusFreeRemaining: a.MinusFreeRemaining,
		LastResetDay:       a.LastResetDay,
		WarnedToday:        a.WarnedToday,
		ShamedToday:        a.ShamedToday,
		GivenTotal:         a.GivenTotal,
		TakenTotal:         a.TakenTotal,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	// времена храним в UTC: SQLite сравнивает их как строки
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = row.UpdatedAt.UTC()
	if err := t.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("ошибка сохранения счёта: %w", err)
	}
	return nil
}

func (t *gormTx) SetGivenBalance(ctx context.Context, scopeID, giverID, receiverID, amount int64) error {
	row := givenRow{ChatID: scopeID, GiverID: giverID, ReceiverID: receiverID, Amount: amount}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "giver_id"}, {Name: "receiver_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("ошибка записи выданного: %w", err)
	}
	return nil
}

func (t *gormTx) AppendTransfer(ctx context.Context, tr *Transfer) error {
	row := transferRow{
		ID:         tr.ID,
		ChatID:     tr.ScopeID,
		GiverID:    tr.GiverID,
		ReceiverID: tr.ReceiverID,
		Amount:     tr.Amount,
		Source:     string(tr.Source),
		CreatedAt:  tr.CreatedAt.UTC(),
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("ошибка записи перевода: %w", err)
	}
	return nil
}
