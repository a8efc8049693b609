package cycle_test

import (
	"testing"
	"time"

	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/stretchr/testify/require"
)

// 2025-03-07 is a Friday.
var friday = time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)

func TestCalendar_WeekStart(t *testing.T) {
	cal := cycle.NewCalendar(time.UTC, time.Friday)

	// Mid-week instants resolve to the previous Friday midnight.
	wednesday := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	require.Equal(t, friday, cal.WeekStart(wednesday))

	// Friday itself starts a new cycle, at any time of day.
	require.Equal(t, friday, cal.WeekStart(friday))
	require.Equal(t, friday, cal.WeekStart(friday.Add(23*time.Hour)))

	// Thursday 23:59 still belongs to the cycle that began six days earlier.
	thursday := time.Date(2025, 3, 13, 23, 59, 59, 0, time.UTC)
	require.Equal(t, friday, cal.WeekStart(thursday))
}

func TestCalendar_SameWeek_Boundary(t *testing.T) {
	cal := cycle.NewCalendar(time.UTC, time.Friday)

	thursdayNight := time.Date(2025, 3, 13, 23, 0, 0, 0, time.UTC)
	nextFriday := time.Date(2025, 3, 14, 1, 0, 0, 0, time.UTC)

	require.True(t, cal.SameWeek(friday, thursdayNight))
	require.False(t, cal.SameWeek(thursdayNight, nextFriday))
}

func TestCalendar_WeekID(t *testing.T) {
	cal := cycle.NewCalendar(time.UTC, time.Friday)

	require.Equal(t, "2025-W10", cal.WeekID(friday))

	// Every instant of the cycle shares the id.
	monday := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, cal.WeekID(friday), cal.WeekID(monday))

	// The next cycle gets a different one.
	nextFriday := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	require.NotEqual(t, cal.WeekID(friday), cal.WeekID(nextFriday))
}

func TestCalendar_SameDay(t *testing.T) {
	cal := cycle.NewCalendar(time.UTC, time.Friday)

	morning := time.Date(2025, 3, 8, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 8, 21, 0, 0, 0, time.UTC)
	pastMidnight := time.Date(2025, 3, 9, 0, 30, 0, 0, time.UTC)

	require.True(t, cal.SameDay(morning, evening))
	require.False(t, cal.SameDay(evening, pastMidnight))
}

func TestCalendar_DayKey(t *testing.T) {
	cal := cycle.NewCalendar(time.UTC, time.Friday)

	require.Equal(t, "friday", cal.DayKey(friday))
	require.Equal(t, "saturday", cal.DayKey(friday.AddDate(0, 0, 1)))
	require.Equal(t, "thursday", cal.DayKey(friday.AddDate(0, 0, 6)))
}

func TestCalendar_AlternateAnchor(t *testing.T) {
	cal := cycle.NewCalendar(time.UTC, time.Monday)

	// With a Monday anchor the Friday belongs to the week begun four days
	// earlier.
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	require.Equal(t, monday, cal.WeekStart(friday))
}
