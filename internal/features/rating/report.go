package rating

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"serotonyl.ru/rating-bot/internal/common"
)

// Reports отдаёт статистику и лидерборды, ничего не записывая.
type Reports struct {
	store Reader
	rules Rules
	loc   *time.Location
	now   func() time.Time
}

// NewReports создаёт поверхность отчётов поверх хранилища.
func NewReports(store Reader, rules Rules, loc *time.Location) *Reports {
	if loc == nil {
		loc = time.UTC
	}
	return &Reports{store: store, rules: rules, loc: loc, now: time.Now}
}

// Summary возвращает статистику участника. Если день сменился, лимиты
// показываются уже сброшенными, но в хранилище ничего не пишется.
func (r *Reports) Summary(ctx context.Context, scopeID, userID int64) (*Summary, error) {
	s := &Summary{
		ScopeID:            scopeID,
		UserID:             userID,
		PlusRemaining:      r.rules.PlusCap,
		MinusFreeRemaining: r.rules.MinusFreeCap,
	}

	a, err := r.store.GetAccount(ctx, scopeID, userID)
	switch {
	case errors.Is(err, common.ErrAccountNotFound):
	case err != nil:
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	default:
		s.TotalRating = a.TotalRating
		if a.LastResetDay >= common.DayKey(r.now(), r.loc) {
			s.PlusRemaining = a.PlusRemaining
			s.MinusFreeRemaining = a.MinusFreeRemaining
		}
	}

	// отдал/забрал считаем по журналу
	given, err := r.store.SumTransfers(ctx, TransferFilter{
		ScopeID: scopeID,
		GiverID: int64Ptr(userID),
		Sign:    SignPositive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	taken, err := r.store.SumTransfers(ctx, TransferFilter{
		ScopeID: scopeID,
		GiverID: int64Ptr(userID),
		Sign:    SignNegative,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	s.GivenTotal = given
	s.TakenTotal = -taken
	return s, nil
}

// TopByRating: участники по рейтингу, по убыванию.
func (r *Reports) TopByRating(ctx context.Context, scopeID int64, limit int) ([]Entry, error) {
	accounts, err := r.store.ListAccounts(ctx, scopeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	entries := make([]Entry, 0, len(accounts))
	for _, a := range accounts {
		entries = append(entries, Entry{UserID: a.UserID, Value: a.TotalRating})
	}
	return topN(entries, limit), nil
}

// TopGivers: кто больше всех раздал плюсов. Нулевой since значит за всё время.
func (r *Reports) TopGivers(ctx context.Context, scopeID int64, since time.Time, limit int) ([]Entry, error) {
	return r.topBySign(ctx, scopeID, since, limit, SignPositive)
}

// TopTakers: кто больше всех забрал (по модулю).
func (r *Reports) TopTakers(ctx context.Context, scopeID int64, since time.Time, limit int) ([]Entry, error) {
	return r.topBySign(ctx, scopeID, since, limit, SignNegative)
}

func (r *Reports) topBySign(ctx context.Context, scopeID int64, since time.Time, limit int, sign Sign) ([]Entry, error) {
	aggs, err := r.store.AggregateTransfers(ctx, TransferFilter{
		ScopeID: scopeID,
		Since:   since,
		Sign:    sign,
	}, ByGiver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	entries := make([]Entry, 0, len(aggs))
	for _, a := range aggs {
		if a.UserID == 0 { // админские правки не участвуют
			continue
		}
		v := a.Sum
		if v < 0 {
			v = -v
		}
		entries = append(entries, Entry{UserID: a.UserID, Value: v})
	}
	return topN(entries, limit), nil
}

// DayDeltas: сколько каждый участник получил (в сумме) за календарный день.
// Нулевые итоги не попадают в результат.
func (r *Reports) DayDeltas(ctx context.Context, scopeID int64, day time.Time) ([]Entry, error) {
	start := common.StartOfDay(day, r.loc)
	aggs, err := r.store.AggregateTransfers(ctx, TransferFilter{
		ScopeID: scopeID,
		Since:   start,
		Until:   start.AddDate(0, 0, 1),
	}, ByReceiver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	entries := make([]Entry, 0, len(aggs))
	for _, a := range aggs {
		if a.Sum != 0 {
			entries = append(entries, Entry{UserID: a.UserID, Value: a.Sum})
		}
	}
	return topN(entries, 0), nil
}

// ActiveScopes: чаты, в которых были переводы за указанный день.
func (r *Reports) ActiveScopes(ctx context.Context, day time.Time) ([]int64, error) {
	scopes, err := r.store.ListScopes(ctx, common.StartOfDay(day, r.loc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	return scopes, nil
}

// topN сортирует по убыванию (при равенстве: по user_id) и обрезает до limit.
// limit <= 0: без ограничения.
func topN(entries []Entry, limit int) []Entry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
