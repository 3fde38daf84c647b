package clock_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/dreamplay/rewards/pkg/clock"
)

func TestDayKey(t *testing.T) {
	t.Parallel()

	t.Run("it formats the UTC calendar date", func(t *testing.T) {
		t.Parallel()

		ts := time.Date(2026, 10, 19, 23, 59, 59, 0, time.UTC)
		assert.Equal(t, "2026-10-19", clock.DayKey(ts))
	})

	t.Run("it converts zoned times to UTC before formatting", func(t *testing.T) {
		t.Parallel()

		zone := time.FixedZone("UTC-5", -5*60*60)
		ts := time.Date(2026, 10, 19, 21, 0, 0, 0, zone) // 02:00 UTC next day
		assert.Equal(t, "2026-10-20", clock.DayKey(ts))
	})
}

func TestClockworkSatisfiesClock(t *testing.T) {
	t.Parallel()

	var c clock.Clock = clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-10-19", clock.DayKey(c.Now()))

	var _ clock.Clock = clock.SystemClock{}
}
