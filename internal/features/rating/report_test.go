package rating

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReports(store Reader, rules Rules) *Reports {
	r := NewReports(store, rules, time.UTC)
	r.now = func() time.Time { return day1 }
	return r
}

func TestSummaryMatchesAccountCounters(t *testing.T) {
	store := NewMemoryStore()
	l := newTestLedger(t, store, DefaultRules())
	apply(t, l, 1, 2, 30)
	apply(t, l, 1, 3, 20)
	apply(t, l, 1, 2, -40)

	r := newTestReports(store, DefaultRules())
	s, err := r.Summary(context.Background(), chat, 1)
	require.NoError(t, err)

	a := account(t, store, 1)
	assert.Equal(t, a.GivenTotal, s.GivenTotal)
	assert.Equal(t, a.TakenTotal, s.TakenTotal)
	assert.Equal(t, int64(50), s.GivenTotal)
	assert.Equal(t, int64(40), s.TakenTotal)
	assert.Equal(t, int64(50), s.PlusRemaining)
	assert.Equal(t, int64(10), s.MinusFreeRemaining)
}

func TestSummaryShowsResetQuotasWithoutWriting(t *testing.T) {
	store := NewMemoryStore()
	l := newTestLedger(t, store, DefaultRules())
	apply(t, l, 1, 2, 100)

	r := newTestReports(store, DefaultRules())
	r.now = func() time.Time { return day1.Add(24 * time.Hour) }

	s, err := r.Summary(context.Background(), chat, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), s.PlusRemaining)
	assert.Equal(t, int64(0), account(t, store, 1).PlusRemaining)
}

func TestSummaryUnknownUser(t *testing.T) {
	r := newTestReports(NewMemoryStore(), DefaultRules())
	s, err := r.Summary(context.Background(), chat, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.TotalRating)
	assert.Equal(t, int64(100), s.PlusRemaining)
	assert.Equal(t, int64(50), s.MinusFreeRemaining)
}

func TestTopByRating(t *testing.T) {
	store := NewMemoryStore()
	l := newTestLedger(t, store, DefaultRules())
	apply(t, l, 1, 2, 30)
	apply(t, l, 1, 3, 50)
	apply(t, l, 4, 5, -10)

	r := newTestReports(store, DefaultRules())
	top, err := r.TopByRating(context.Background(), chat, 3)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{3, 50}, {2, 30}, {1, 0}}, top)

	empty, err := r.TopByRating(context.Background(), chat+1, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTopGiversAndTakers(t *testing.T) {
	store := NewMemoryStore()
	l := newTestLedger(t, store, DefaultRules())
	apply(t, l, 1, 9, 10)
	apply(t, l, 2, 9, 40)
	apply(t, l, 3, 9, -30)
	apply(t, l, 4, 9, -5)
	_, err := l.AdminAdjust(context.Background(), chat, 9, -1000)
	require.NoError(t, err)

	r := newTestReports(store, DefaultRules())

	givers, err := r.TopGivers(context.Background(), chat, time.Time{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{2, 40}, {1, 10}}, givers)

	takers, err := r.TopTakers(context.Background(), chat, time.Time{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{3, 30}}, takers)

	later, err := r.TopGivers(context.Background(), chat, day1.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, later)
}

func TestDayDeltas(t *testing.T) {
	store := NewMemoryStore()
	l := newTestLedger(t, store, DefaultRules())
	apply(t, l, 1, 2, 30)
	apply(t, l, 3, 2, -10)
	apply(t, l, 2, 1, 5)
	apply(t, l, 4, 5, 10)
	apply(t, l, 6, 5, -10)

	l.now = func() time.Time { return day1.Add(24 * time.Hour) }
	apply(t, l, 1, 2, 50)

	r := newTestReports(store, DefaultRules())
	deltas, err := r.DayDeltas(context.Background(), chat, day1)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{2, 20}, {1, 5}}, deltas)

	scopes, err := r.ActiveScopes(context.Background(), day1)
	require.NoError(t, err)
	assert.Equal(t, []int64{chat}, scopes)
}
