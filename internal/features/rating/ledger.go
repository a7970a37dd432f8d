// Package rating (ledger.go) применяет изменения рейтинга по правилам
// дневных лимитов и возврата выданных баллов.
package rating

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	cmap "github.com/orcaman/concurrent-map/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rating-bot/internal/common"
	"serotonyl.ru/rating-bot/internal/metrics"
)

// Ledger: единственное место, где меняются счета и журнал переводов.
type Ledger struct {
	store Store
	rules Rules
	loc   *time.Location
	now   func() time.Time
	ids   *snowflake.Node

	// мьютекс на каждый чат: операции внутри чата идут строго по очереди
	locks cmap.ConcurrentMap[string, *sync.Mutex]
}

// NewLedger создаёт ledger. nodeID: номер инстанса для snowflake (0..1023).
func NewLedger(store Store, rules Rules, loc *time.Location, nodeID int64) (*Ledger, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{
		store: store,
		rules: rules,
		loc:   loc,
		now:   time.Now,
		ids:   node,
		locks: cmap.New[*sync.Mutex](),
	}, nil
}

// Rules возвращает текущие правила.
func (l *Ledger) Rules() Rules { return l.rules }

// Location возвращает часовой пояс, в котором считаются сутки.
func (l *Ledger) Location() *time.Location { return l.loc }

func (l *Ledger) scopeLock(scopeID int64) *sync.Mutex {
	key := strconv.FormatInt(scopeID, 10)
	l.locks.SetIfAbsent(key, &sync.Mutex{})
	mu, _ := l.locks.Get(key)
	return mu
}

func isRuleError(err error) bool {
	return errors.Is(err, common.ErrSelfTarget) ||
		errors.Is(err, common.ErrAmountOutOfRange) ||
		errors.Is(err, common.ErrInsufficientQuota) ||
		errors.Is(err, common.ErrNothingToReclaim)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, common.ErrSelfTarget):
		return "self_target"
	case errors.Is(err, common.ErrAmountOutOfRange):
		return "out_of_range"
	case errors.Is(err, common.ErrInsufficientQuota):
		return "insufficient_quota"
	case errors.Is(err, common.ErrNothingToReclaim):
		return "nothing_to_reclaim"
	}
	return "storage_error"
}

func (l *Ledger) reject(in Intent, err error, quiet bool) (*Outcome, error) {
	metrics.RatingChanges.WithLabelValues(resultLabel(err)).Inc()
	log.WithFields(log.Fields{
		"chat_id":   in.ScopeID,
		"voter_id":  in.VoterID,
		"target_id": in.TargetID,
		"amount":    in.Amount,
		"source":    in.Source,
	}).WithError(err).Debug("Изменение рейтинга отклонено")
	return &Outcome{Kind: Rejected, Err: err, Quiet: quiet, Amount: in.Amount}, err
}

// Apply применяет запрос на изменение рейтинга.
//
// Отказ возвращается и как Outcome с Kind=Rejected, и как ошибка.
// При любом отказе состояние не меняется.
func (l *Ledger) Apply(ctx context.Context, in Intent) (*Outcome, error) {
	if in.VoterID == in.TargetID {
		return l.reject(in, common.ErrSelfTarget, false)
	}

	abs := in.Amount
	if abs < 0 {
		abs = -abs
	}
	// abs < 0 только для MinInt64
	if abs < l.rules.MinStep || abs > l.rules.MaxStep {
		return l.reject(in, common.ErrAmountOutOfRange, !l.rules.RejectOutOfRange)
	}
	if in.Source == "" {
		in.Source = SourceText
	}

	at := l.now()
	if in.Timestamp > 0 {
		at = time.Unix(in.Timestamp, 0)
	}
	day := common.DayKey(at, l.loc)

	mu := l.scopeLock(in.ScopeID)
	mu.Lock()
	defer mu.Unlock()

	out := &Outcome{Kind: Applied, Amount: in.Amount}
	err := l.store.InTx(ctx, in.ScopeID, func(tx Tx) error {
		voter, err := l.loadAccount(ctx, tx, in.ScopeID, in.VoterID, day, at)
		if err != nil {
			return err
		}
		target, err := l.loadAccount(ctx, tx, in.ScopeID, in.TargetID, day, at)
		if err != nil {
			return err
		}
		given, err := tx.GivenBalance(ctx, in.ScopeID, in.VoterID, in.TargetID)
		if err != nil {
			return err
		}

		if in.Amount > 0 {
			if voter.PlusRemaining < in.Amount {
				return common.ErrInsufficientQuota
			}
			voter.PlusRemaining -= in.Amount
			voter.GivenTotal += in.Amount
			target.TotalRating += in.Amount
			given += in.Amount
		} else {
			take := abs
			usedFree := min(voter.MinusFreeRemaining, take)
			take -= usedFree
			if take > 0 {
				if given < take {
					return common.ErrNothingToReclaim
				}
				given -= take
				// возврат не может поднять лимит выше дневного
				voter.PlusRemaining = min(voter.PlusRemaining+take, l.rules.PlusCap)
				out.Reclaimed = take
			}
			voter.MinusFreeRemaining -= usedFree
			voter.TakenTotal += abs
			target.TotalRating -= abs
		}

		if err := tx.SetGivenBalance(ctx, in.ScopeID, in.VoterID, in.TargetID, given); err != nil {
			return err
		}
		if err := tx.AppendTransfer(ctx, &Transfer{
			ID:         l.ids.Generate().Int64(),
			ScopeID:    in.ScopeID,
			GiverID:    in.VoterID,
			ReceiverID: in.TargetID,
			Amount:     in.Amount,
			Source:     in.Source,
			CreatedAt:  at,
		}); err != nil {
			return err
		}

		if voter.PlusRemaining < l.rules.LowBalance && !voter.WarnedToday {
			voter.WarnedToday = true
			out.LowBalanceWarning = true
		}

		if in.Amount < 0 && !target.ShamedToday {
			negative, err := tx.SumTransfers(ctx, TransferFilter{
				ScopeID:    in.ScopeID,
				ReceiverID: int64Ptr(in.TargetID),
				Since:      common.StartOfDay(at, l.loc),
				Sign:       SignNegative,
			})
			if err != nil {
				return err
			}
			if negative <= l.rules.ShameThreshold {
				target.ShamedToday = true
				out.ShameTriggered = true
			}
		}

		voter.UpdatedAt = at
		target.UpdatedAt = at
		if err := tx.SaveAccount(ctx, voter); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, target); err != nil {
			return err
		}

		out.NewTargetTotal = target.TotalRating
		out.PlusRemaining = voter.PlusRemaining
		out.MinusFreeRemaining = voter.MinusFreeRemaining
		return nil
	})
	if err != nil {
		if isRuleError(err) {
			return l.reject(in, err, false)
		}
		log.WithError(err).WithField("chat_id", in.ScopeID).Error("Ошибка хранилища рейтинга")
		return l.reject(in, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err), false)
	}

	metrics.RatingChanges.WithLabelValues("applied").Inc()
	if in.Amount > 0 {
		metrics.RatingPointsMoved.WithLabelValues("give").Add(float64(in.Amount))
	} else {
		metrics.RatingPointsMoved.WithLabelValues("take").Add(float64(abs))
	}
	if out.ShameTriggered {
		metrics.RatingShame.Inc()
	}

	log.WithFields(log.Fields{
		"chat_id":   in.ScopeID,
		"voter_id":  in.VoterID,
		"target_id": in.TargetID,
		"amount":    in.Amount,
		"total":     out.NewTargetTotal,
		"reclaimed": out.Reclaimed,
	}).Debug("Рейтинг изменён")

	return out, nil
}

// loadAccount читает счёт, создаёт его с полными лимитами при первом
// обращении и сбрасывает лимиты, если наступил новый день.
func (l *Ledger) loadAccount(ctx context.Context, tx Tx, scopeID, userID int64, day string, at time.Time) (*Account, error) {
	a, err := tx.GetAccount(ctx, scopeID, userID)
	if errors.Is(err, common.ErrAccountNotFound) {
		return &Account{
			ScopeID:            scopeID,
			UserID:             userID,
			PlusRemaining:      l.rules.PlusCap,
			MinusFreeRemaining: l.rules.MinusFreeCap,
			LastResetDay:       day,
			CreatedAt:          at,
			UpdatedAt:          at,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	l.resetIfStale(a, day)
	return a, nil
}

// resetIfStale сбрасывает дневные лимиты. Ключи дней сравниваются как строки
// 2006-01-02, поэтому запрос с более старым временем сброс не повторит.
func (l *Ledger) resetIfStale(a *Account, day string) bool {
	if a.LastResetDay >= day {
		return false
	}
	l.resetDay(a, day)
	return true
}

func (l *Ledger) resetDay(a *Account, day string) {
	a.PlusRemaining = l.rules.PlusCap
	a.MinusFreeRemaining = l.rules.MinusFreeCap
	a.WarnedToday = false
	a.ShamedToday = false
	a.LastResetDay = day
}

// AdminAdjust меняет рейтинг напрямую, без лимитов. В журнал пишется
// перевод от GiverID=0 с источником admin.
func (l *Ledger) AdminAdjust(ctx context.Context, scopeID, userID, amount int64) (*Account, error) {
	if amount == 0 {
		return nil, common.ErrAmountOutOfRange
	}
	at := l.now()
	day := common.DayKey(at, l.loc)

	mu := l.scopeLock(scopeID)
	mu.Lock()
	defer mu.Unlock()

	var result Account
	err := l.store.InTx(ctx, scopeID, func(tx Tx) error {
		a, err := l.loadAccount(ctx, tx, scopeID, userID, day, at)
		if err != nil {
			return err
		}
		a.TotalRating += amount
		a.UpdatedAt = at
		if err := tx.AppendTransfer(ctx, &Transfer{
			ID:         l.ids.Generate().Int64(),
			ScopeID:    scopeID,
			GiverID:    0,
			ReceiverID: userID,
			Amount:     amount,
			Source:     SourceAdmin,
			CreatedAt:  at,
		}); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, a); err != nil {
			return err
		}
		result = *a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}

	metrics.RatingPointsMoved.WithLabelValues("admin").Add(float64(max(amount, -amount)))
	log.WithFields(log.Fields{
		"chat_id": scopeID,
		"user_id": userID,
		"amount":  amount,
		"total":   result.TotalRating,
	}).Info("Рейтинг изменён администратором")
	return &result, nil
}

// ResetQuota принудительно возвращает участнику полные дневные лимиты.
func (l *Ledger) ResetQuota(ctx context.Context, scopeID, userID int64) (*Account, error) {
	at := l.now()
	day := common.DayKey(at, l.loc)

	mu := l.scopeLock(scopeID)
	mu.Lock()
	defer mu.Unlock()

	var result Account
	err := l.store.InTx(ctx, scopeID, func(tx Tx) error {
		a, err := l.loadAccount(ctx, tx, scopeID, userID, day, at)
		if err != nil {
			return err
		}
		shamed := a.ShamedToday
		l.resetDay(a, day)
		a.ShamedToday = shamed // позор относится к цели, а не к лимитам
		a.UpdatedAt = at
		if err := tx.SaveAccount(ctx, a); err != nil {
			return err
		}
		result = *a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}

	log.WithFields(log.Fields{
		"chat_id": scopeID,
		"user_id": userID,
	}).Info("Лимиты сброшены администратором")
	return &result, nil
}
