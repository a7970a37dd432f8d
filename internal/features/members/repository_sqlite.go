package members

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"serotonyl.ru/rating-bot/internal/common"
)

type memberRow struct {
	UserID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Username  string `gorm:"size:255;index"`
	FirstName string `gorm:"size:255;not null"`
	LastName  string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (memberRow) TableName() string { return "members" }

// SQLiteModels: модели для AutoMigrate.
func SQLiteModels() []any {
	return []any{&memberRow{}}
}

// GormRepository: участники в SQLite.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Upsert(ctx context.Context, m *Member) error {
	row := memberRow{
		UserID:    m.UserID,
		Username:  m.Username,
		FirstName: m.FirstName,
		LastName:  m.LastName,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("ошибка создания/обновления участника: %w", err)
	}
	return nil
}

func (r *GormRepository) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	var row memberRow
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("участник не найден (user_id=%d): %w", userID, common.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения участника (user_id=%d): %w", userID, err)
	}
	return &Member{
		UserID:    row.UserID,
		Username:  row.Username,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
