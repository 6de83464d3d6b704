package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

// 2026-01-28 is a Wednesday.
var wednesday = model.WorkingHours{Weekday: time.Wednesday, IsWorking: true, StartMinute: 9 * 60, EndMinute: 12 * 60}

func TestAvailableSlots_Basic(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := AvailableSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 15*time.Minute, 15*time.Minute, busy, day)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Equal(day.Add(9*time.Hour)))
	assert.True(t, slots[1].Equal(day.Add(9*time.Hour+45*time.Minute)))
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	now := day.Add(9*time.Hour + 31*time.Minute)

	slots := AvailableSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 15*time.Minute, 15*time.Minute, nil, now)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Equal(day.Add(9*time.Hour+45*time.Minute)))
}

func TestAt(t *testing.T) {
	got, err := At("2026-01-28", "14:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 28, 14, 30, 0, 0, time.UTC), got)

	_, err = At("2026-02-30", "14:30")
	assert.Error(t, err)
	_, err = At("2026-01-28", "2pm")
	assert.Error(t, err)
}

func TestParseClockRequiresPadding(t *testing.T) {
	got, err := ParseClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 5, got.Minute())

	for _, bad := range []string{"9:30", "09:3", "24:00", "12:60", "0930", " 9:30", ""} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
	_, err = At("2026-01-28", "9:30")
	assert.Error(t, err)
}

func TestWithinHours(t *testing.T) {
	assert.True(t, WithinHours(wednesday, "2026-01-28", "09:00", 60))
	assert.True(t, WithinHours(wednesday, "2026-01-28", "11:00", 60), "ending exactly at close is allowed")
	assert.False(t, WithinHours(wednesday, "2026-01-28", "11:30", 60))
	assert.False(t, WithinHours(wednesday, "2026-01-28", "08:30", 60))
	assert.False(t, WithinHours(wednesday, "2026-01-29", "09:00", 60), "different weekday")

	off := wednesday
	off.IsWorking = false
	assert.False(t, WithinHours(off, "2026-01-28", "09:00", 60))
}

func TestOpenSlots(t *testing.T) {
	busy := []model.Booking{
		{ScheduledDate: "2026-01-28", ScheduledTime: "10:00", ServiceDurationMinutes: 60},
	}
	slots, err := OpenSlots("2026-01-28", wednesday, 60, busy, time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{
		{Date: "2026-01-28", StartTime: "09:00", EndTime: "10:00"},
		{Date: "2026-01-28", StartTime: "11:00", EndTime: "12:00"},
	}, slots)

	slots, err = OpenSlots("2026-01-29", wednesday, 60, nil, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, slots)

	_, err = OpenSlots("28/01/2026", wednesday, 60, nil, time.Time{})
	assert.Error(t, err)
}
