package streak

import "time"

// Status is a read-only view of a streak as seen on a given day.
type Status struct {
	StreakDays int `json:"streak_days"`
	// Alive is true while the last session was today or yesterday.
	Alive            bool `json:"alive"`
	SessionDoneToday bool `json:"session_done_today"`
	NextMilestone    int  `json:"next_milestone"`
	DaysToMilestone  int  `json:"days_to_milestone"`
}

// StatusAt evaluates s on today without changing it. A broken streak reports zero days.
func StatusAt(s State, today time.Time) Status {
	st := Status{}
	if s.LastSessionDate != nil {
		gap := DaysBetween(*s.LastSessionDate, today)
		st.SessionDoneToday = gap <= 0
		st.Alive = gap <= 1
	}
	if st.Alive {
		st.StreakDays = s.StreakDays
	}

	// Days still needed counting the session the user has not done yet today
	switch {
	case st.StreakDays < WeekMilestone:
		st.NextMilestone = WeekMilestone
	case st.StreakDays < MonthMilestone:
		st.NextMilestone = MonthMilestone
	default:
		return st
	}
	st.DaysToMilestone = st.NextMilestone - st.StreakDays
	return st
}
