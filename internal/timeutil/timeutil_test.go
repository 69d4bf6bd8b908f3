package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(at(10, 0), at(12, 0), at(11, 0), at(13, 0)))
	assert.True(t, Overlaps(at(10, 0), at(12, 0), at(10, 30), at(11, 0)))
	// Half-open intervals: a shared boundary is not an overlap.
	assert.False(t, Overlaps(at(10, 0), at(12, 0), at(12, 0), at(13, 0)))
	assert.False(t, Overlaps(at(10, 0), at(11, 0), at(12, 0), at(13, 0)))
}

func TestSameLocalDate(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	assert.True(t, SameLocalDate(at(0, 0), at(23, 59), time.UTC))
	assert.False(t, SameLocalDate(at(23, 0), at(23, 0).Add(2*time.Hour), time.UTC))

	// 01:00 UTC is still the previous evening in Sao Paulo.
	assert.False(t, SameLocalDate(at(1, 0), at(12, 0), sp))
}

func TestClampInterval(t *testing.T) {
	assert.Equal(t, time.Hour, ClampInterval(at(9, 0), at(12, 0), at(10, 0), at(11, 0)))
	assert.Equal(t, 2*time.Hour, ClampInterval(at(10, 0), at(12, 0), at(9, 0), at(13, 0)))
	assert.Equal(t, time.Duration(0), ClampInterval(at(9, 0), at(10, 0), at(11, 0), at(12, 0)))
}

func TestMinutesOfDayAndStartOfDay(t *testing.T) {
	assert.Equal(t, 9*60+30, MinutesOfDay(at(9, 30), time.UTC))
	assert.Equal(t, day, StartOfDay(at(15, 45), time.UTC))
}
