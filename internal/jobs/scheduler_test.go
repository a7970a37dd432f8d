package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type digestFunc func(ctx context.Context, day time.Time) error

func (f digestFunc) SendDigest(ctx context.Context, day time.Time) error { return f(ctx, day) }

func TestSchedulerRunsDigest(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	days := make(chan time.Time, 4)
	s := NewScheduler(digestFunc(func(_ context.Context, day time.Time) error {
		days <- day
		return nil
	}), "@every 1s", loc)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case day := <-days:
		assert.Equal(t, loc, day.Location())
	case <-time.After(5 * time.Second):
		t.Fatal("дайджест не запустился")
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(digestFunc(func(context.Context, time.Time) error { return nil }), "not a cron", time.UTC)
	assert.Error(t, s.Start(context.Background()))
}
