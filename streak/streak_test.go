package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecordDailySession_FreshUser(t *testing.T) {
	s, awarded := RecordDailySession(State{}, date(2024, 1, 1).Add(15*time.Hour))

	assert.Equal(t, 2, awarded)
	assert.Equal(t, 2, s.Points)
	assert.Equal(t, 1, s.StreakDays)
	require.NotNil(t, s.LastSessionDate)
	require.NotNil(t, s.StreakStartDate)
	assert.True(t, s.LastSessionDate.Equal(date(2024, 1, 1)))
	assert.True(t, s.StreakStartDate.Equal(date(2024, 1, 1)))
	assert.Nil(t, s.LastBonusDate)
}

func TestRecordDailySession_SameDayIsIdempotent(t *testing.T) {
	first, _ := RecordDailySession(State{}, date(2024, 1, 1))
	second, awarded := RecordDailySession(first, date(2024, 1, 1).Add(23*time.Hour))

	assert.Equal(t, 0, awarded)
	assert.Equal(t, first, second)
}

func TestRecordDailySession_PastDateIsNoop(t *testing.T) {
	s, _ := RecordDailySession(State{}, date(2024, 3, 10))
	next, awarded := RecordDailySession(s, date(2024, 3, 8))

	assert.Equal(t, 0, awarded)
	assert.Equal(t, s, next)
	assert.True(t, next.LastSessionDate.Equal(date(2024, 3, 10)))
}

func TestRecordDailySession_WeekBonus(t *testing.T) {
	var s State
	var awarded int
	for d := 1; d <= 7; d++ {
		s, awarded = RecordDailySession(s, date(2024, 1, d))
		if d < 7 {
			assert.Equal(t, 2, awarded, "day %d", d)
		}
	}

	assert.Equal(t, 52, awarded)
	assert.Equal(t, 7, s.StreakDays)
	require.NotNil(t, s.LastBonusDate)
	assert.True(t, s.LastBonusDate.Equal(date(2024, 1, 7)))
	assert.Equal(t, 6*2+52, s.Points)
}

func TestRecordDailySession_GapResetsStreak(t *testing.T) {
	tests := []struct {
		name string
		gap  int
	}{
		{"two days", 2},
		{"a month", 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s State
			for d := 1; d <= 4; d++ {
				s, _ = RecordDailySession(s, date(2024, 5, d))
			}
			today := date(2024, 5, 4).AddDate(0, 0, tt.gap)
			next, awarded := RecordDailySession(s, today)

			assert.Equal(t, 2, awarded)
			assert.Equal(t, 1, next.StreakDays)
			assert.True(t, next.StreakStartDate.Equal(today))
			assert.True(t, next.LastSessionDate.Equal(today))
		})
	}
}

func TestRecordDailySession_StreakContinuityAcrossMonthAndYear(t *testing.T) {
	var s State
	start := date(2023, 12, 20)
	for i := 0; i < 20; i++ {
		s, _ = RecordDailySession(s, start.AddDate(0, 0, i))
		assert.Equal(t, i+1, s.StreakDays)
	}
	assert.True(t, s.StreakStartDate.Equal(start))
}

func TestRecordDailySession_MonthBonusAfterWeekBonus(t *testing.T) {
	var s State
	bonuses := map[int]int{}
	start := date(2024, 2, 1)
	for i := 0; i < 35; i++ {
		var awarded int
		s, awarded = RecordDailySession(s, start.AddDate(0, 0, i))
		if awarded > SessionPoints {
			bonuses[i+1] = awarded - SessionPoints
		}
	}

	assert.Equal(t, map[int]int{7: 50, 30: 200}, bonuses)
	assert.True(t, s.LastBonusDate.Equal(start.AddDate(0, 0, 29)))
}

func TestRecordDailySession_MonthBonusRearmWindow(t *testing.T) {
	today := date(2024, 6, 30)
	yesterday := today.AddDate(0, 0, -1)

	tests := []struct {
		name      string
		lastBonus *time.Time
		want      int
	}{
		{"no previous bonus", nil, 202},
		{"bonus six days ago", ptr(today.AddDate(0, 0, -6)), 2},
		{"bonus exactly seven days ago", ptr(today.AddDate(0, 0, -7)), 202},
		{"bonus long ago", ptr(today.AddDate(0, 0, -23)), 202},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{
				Points:          100,
				StreakDays:      29,
				LastSessionDate: ptr(yesterday),
				StreakStartDate: ptr(yesterday.AddDate(0, 0, -28)),
				LastBonusDate:   tt.lastBonus,
			}
			next, awarded := RecordDailySession(s, today)
			assert.Equal(t, tt.want, awarded)
			assert.Equal(t, 30, next.StreakDays)
			assert.Equal(t, 100+tt.want, next.Points)
		})
	}
}

func TestRecordDailySession_WeekBonusNotRepeatedAfterReset(t *testing.T) {
	var s State
	for d := 1; d <= 7; d++ {
		s, _ = RecordDailySession(s, date(2024, 1, d))
	}
	// streak broken, then rebuilt to seven days
	for d := 10; d <= 16; d++ {
		var awarded int
		s, awarded = RecordDailySession(s, date(2024, 1, d))
		assert.Equal(t, 2, awarded, "day %d", d)
	}
	assert.Equal(t, 7, s.StreakDays)
}

func TestRecordDailySession_PointsMonotonic(t *testing.T) {
	days := []time.Time{
		date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 2), date(2023, 12, 30),
		date(2024, 1, 5), date(2024, 1, 6), date(2024, 2, 1),
	}
	var s State
	for _, d := range days {
		prev := s.Points
		s, _ = RecordDailySession(s, d)
		assert.GreaterOrEqual(t, s.Points, prev)
	}
}

func TestRecordActivity(t *testing.T) {
	tests := []struct {
		kind ActivityKind
		want int
	}{
		{"caja", 10},
		{"aprendiendo", 5},
		{"videoblog", 3},
		{"poder", 15},
		{"PODER", 15},
		{" Caja ", 10},
		{"unknown", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			base := State{Points: 40, StreakDays: 3}
			next, awarded := RecordActivity(base, tt.kind)
			assert.Equal(t, tt.want, awarded)
			assert.Equal(t, 40+tt.want, next.Points)
			assert.Equal(t, 3, next.StreakDays)
		})
	}
}

func TestStatusAt(t *testing.T) {
	today := date(2024, 4, 10)

	st := StatusAt(State{}, today)
	assert.False(t, st.Alive)
	assert.Equal(t, WeekMilestone, st.NextMilestone)
	assert.Equal(t, 7, st.DaysToMilestone)

	alive := State{StreakDays: 5, LastSessionDate: ptr(today.AddDate(0, 0, -1))}
	st = StatusAt(alive, today)
	assert.True(t, st.Alive)
	assert.False(t, st.SessionDoneToday)
	assert.Equal(t, 5, st.StreakDays)
	assert.Equal(t, 2, st.DaysToMilestone)

	broken := State{StreakDays: 12, LastSessionDate: ptr(today.AddDate(0, 0, -3))}
	st = StatusAt(broken, today)
	assert.False(t, st.Alive)
	assert.Equal(t, 0, st.StreakDays)

	long := State{StreakDays: 40, LastSessionDate: ptr(today)}
	st = StatusAt(long, today)
	assert.True(t, st.SessionDoneToday)
	assert.Equal(t, 0, st.NextMilestone)
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	a := time.Date(2024, 3, 9, 23, 59, 0, 0, loc)
	b := time.Date(2024, 3, 10, 0, 1, 0, 0, loc)
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a.Add(-time.Hour)))
}

func ptr(t time.Time) *time.Time { return &t }
