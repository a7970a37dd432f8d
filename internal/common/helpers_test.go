package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPluralizePoints(t *testing.T) {
	cases := map[int64]string{
		0:   "баллов",
		1:   "балл",
		2:   "балла",
		4:   "балла",
		5:   "баллов",
		11:  "баллов",
		12:  "баллов",
		21:  "балл",
		22:  "балла",
		111: "баллов",
		-1:  "балл",
		-3:  "балла",
	}
	for n, want := range cases {
		assert.Equal(t, want, PluralizePoints(n), "n=%d", n)
	}
}

func TestFormatSignedPoints(t *testing.T) {
	assert.Equal(t, "+100 баллов", FormatSignedPoints(100))
	assert.Equal(t, "-50 баллов", FormatSignedPoints(-50))
	assert.Equal(t, "+1 балл", FormatSignedPoints(1))
	assert.Equal(t, "+0 баллов", FormatSignedPoints(0))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "2 350", FormatNumber(2350))
	assert.Equal(t, "1 000 000", FormatNumber(1000000))
	assert.Equal(t, "-12 005", FormatNumber(-12005))
}

func TestDayKeyUsesLocation(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	// 22:30 UTC: уже следующий день по Москве
	ts := time.Date(2026, 10, 17, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-10-17", DayKey(ts, time.UTC))
	assert.Equal(t, "2026-10-18", DayKey(ts, msk))

	start := StartOfDay(ts, msk)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, msk), start)
	assert.True(t, !start.After(ts))
}
