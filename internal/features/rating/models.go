// Package rating реализует социальный рейтинг чата: дневные лимиты плюсов,
// бесплатные минусы, возврат ранее выданных баллов и позор за сутки.
// models.go описывает счета, переводы и результат операции.
package rating

import (
	"time"

	"serotonyl.ru/rating-bot/internal/config"
)

// Source: откуда пришло изменение рейтинга.
type Source string

const (
	SourceText  Source = "text"  // ответ с +N / -N
	SourceLaugh Source = "laugh" // ответ смехом
	SourceAdmin Source = "admin" // ручная правка админом
)

// Intent: запрос на изменение рейтинга от голосующего к цели.
type Intent struct {
	ScopeID   int64 // чат
	VoterID   int64
	TargetID  int64
	Amount    int64 // со знаком
	Timestamp int64 // unix-секунды; 0: текущее время
	Source    Source
}

// Account: рейтинг и дневные лимиты участника в конкретном чате.
type Account struct {
	ScopeID            int64     `db:"chat_id"`
	UserID             int64     `db:"user_id"`
	TotalRating        int64     `db:"total_rating"`
	PlusRemaining      int64     `db:"plus_remaining"`
	MinusFreeRemaining int64     `db:"minus_free_remaining"`
	LastResetDay       string    `db:"last_reset_day"` // 2006-01-02 в APP_TIMEZONE
	WarnedToday        bool      `db:"warned_today"`
	ShamedToday        bool      `db:"shamed_today"`
	GivenTotal         int64     `db:"given_total"`
	TakenTotal         int64     `db:"taken_total"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// Transfer: запись журнала. Никогда не меняется и не удаляется.
type Transfer struct {
	ID         int64     `db:"id"` // snowflake
	ScopeID    int64     `db:"chat_id"`
	GiverID    int64     `db:"giver_id"` // 0: админ
	ReceiverID int64     `db:"receiver_id"`
	Amount     int64     `db:"amount"`
	Source     Source    `db:"source"`
	CreatedAt  time.Time `db:"created_at"`
}

// OutcomeKind: итог операции.
type OutcomeKind int

const (
	Applied OutcomeKind = iota + 1
	Rejected
)

func (k OutcomeKind) String() string {
	switch k {
	case Applied:
		return "applied"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Outcome: результат Apply.
type Outcome struct {
	Kind OutcomeKind
	Err  error // причина отказа (одна из ошибок common)
	// Quiet: отказ не нужно показывать пользователю.
	Quiet bool

	Amount             int64
	NewTargetTotal     int64
	PlusRemaining      int64
	MinusFreeRemaining int64
	// Reclaimed: сколько баллов вернулось в дневной лимит за счёт ранее выданных.
	Reclaimed int64

	LowBalanceWarning bool
	ShameTriggered    bool
}

// Rules: параметры рейтинга.
type Rules struct {
	PlusCap          int64
	MinusFreeCap     int64
	MinStep          int64
	MaxStep          int64
	RejectOutOfRange bool // false: молча игнорировать
	LowBalance       int64
	ShameThreshold   int64 // отрицательное
}

// DefaultRules возвращает значения по умолчанию: 100 плюсов, 50 бесплатных минусов.
func DefaultRules() Rules {
	return Rules{
		PlusCap:        100,
		MinusFreeCap:   50,
		MinStep:        1,
		MaxStep:        100,
		LowBalance:     50,
		ShameThreshold: -500,
	}
}

// RulesFromConfig собирает Rules из конфигурации.
func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		PlusCap:          cfg.RatingPlusCap,
		MinusFreeCap:     cfg.RatingMinusFreeCap,
		MinStep:          cfg.RatingMinStep,
		MaxStep:          cfg.RatingMaxStep,
		RejectOutOfRange: cfg.RatingOutOfRange == config.OutOfRangeReject,
		LowBalance:       cfg.RatingLowBalance,
		ShameThreshold:   cfg.RatingShameThreshold,
	}
}

// Entry: строка лидерборда.
type Entry struct {
	UserID int64 `json:"user_id"`
	Value  int64 `json:"value"`
}

// Summary: статистика участника для /me.
type Summary struct {
	ScopeID            int64 `json:"chat_id"`
	UserID             int64 `json:"user_id"`
	TotalRating        int64 `json:"total_rating"`
	PlusRemaining      int64 `json:"plus_remaining"`
	MinusFreeRemaining int64 `json:"minus_free_remaining"`
	GivenTotal         int64 `json:"given_total"`
	TakenTotal         int64 `json:"taken_total"`
}
