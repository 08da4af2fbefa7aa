// Package streak holds the daily-session streak and points rules. It performs no I/O; callers load a
// State, apply one of the operations and persist the result inside the same locked transaction.
package streak

import (
	"strings"
	"time"
)

const (
	// SessionPoints is awarded for the first session of each calendar day.
	SessionPoints = 2
	// WeekBonus is granted once, when a streak first reaches WeekMilestone days.
	WeekBonus      = 50
	WeekMilestone  = 7
	MonthBonus     = 200
	MonthMilestone = 30
	// MonthBonusRearmDays is the minimum distance between the last bonus and a new 30-day bonus.
	MonthBonusRearmDays = 7
)

// State is the persisted streak snapshot of one user. The zero value is a user with no sessions.
type State struct {
	Points          int
	StreakDays      int
	LastSessionDate *time.Time
	StreakStartDate *time.Time
	LastBonusDate   *time.Time
}

// Day truncates t to midnight of its calendar date in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b (negative when b is earlier).
// Only the civil dates count, so DST changes and time-of-day are irrelevant.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// RecordDailySession applies a session on today and returns the new state with the points awarded
// (base plus any milestone bonus). A second session on the same day, or a day before the last
// recorded one, leaves the state untouched and awards nothing.
func RecordDailySession(s State, today time.Time) (State, int) {
	today = Day(today)

	if s.LastSessionDate == nil {
		s.StreakDays = 1
		s.StreakStartDate = dayPtr(today)
		s.LastSessionDate = dayPtr(today)
		s.Points += SessionPoints
		return s, SessionPoints
	}

	gap := DaysBetween(*s.LastSessionDate, today)
	if gap <= 0 {
		return s, 0
	}

	awarded := SessionPoints
	if gap == 1 {
		s.StreakDays++
		awarded += milestoneBonus(&s, today)
	} else {
		s.StreakDays = 1
		s.StreakStartDate = dayPtr(today)
	}
	s.LastSessionDate = dayPtr(today)
	s.Points += awarded
	return s, awarded
}

func milestoneBonus(s *State, today time.Time) int {
	switch {
	case s.StreakDays == WeekMilestone && s.LastBonusDate == nil:
		s.LastBonusDate = dayPtr(today)
		return WeekBonus
	case s.StreakDays == MonthMilestone &&
		(s.LastBonusDate == nil || DaysBetween(*s.LastBonusDate, today) >= MonthBonusRearmDays):
		s.LastBonusDate = dayPtr(today)
		return MonthBonus
	}
	return 0
}

// ActivityKind names a completed in-app activity.
type ActivityKind string

const (
	ActivityCaja        ActivityKind = "caja"
	ActivityAprendiendo ActivityKind = "aprendiendo"
	ActivityVideoblog   ActivityKind = "videoblog"
	ActivityPoder       ActivityKind = "poder"
)

var activityPoints = map[ActivityKind]int{
	ActivityCaja:        10,
	ActivityAprendiendo: 5,
	ActivityVideoblog:   3,
	ActivityPoder:       15,
}

// ActivityPoints returns the reward for kind, matched case-insensitively. Unknown kinds are worth 0.
func ActivityPoints(kind ActivityKind) int {
	return activityPoints[ActivityKind(strings.ToLower(strings.TrimSpace(string(kind))))]
}

// KnownActivity reports whether kind has a non-zero reward.
func KnownActivity(kind ActivityKind) bool {
	return ActivityPoints(kind) > 0
}

// RecordActivity adds the fixed reward for kind. Streak fields are not touched and there is no daily cap.
func RecordActivity(s State, kind ActivityKind) (State, int) {
	pts := ActivityPoints(kind)
	s.Points += pts
	return s, pts
}

func dayPtr(t time.Time) *time.Time {
	d := Day(t)
	return &d
}
