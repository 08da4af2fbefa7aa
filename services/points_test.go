package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/streak"
	"github.com/cajaoblatos/oblatos34/testutil"
)

func TestRecordDailySession_FirstSessionAndSameDay(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ana", "ana@example.com", "secret1")
	clk := newClock(2026, 3, 2, 9)
	svc := NewPointsService(db).WithClock(clk.Now)
	ctx := context.Background()

	res, err := svc.RecordDailySession(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, streak.SessionPoints, res.PointsAwarded)
	assert.Equal(t, 0, res.BonusAwarded)
	assert.Equal(t, 1, res.StreakDays)
	assert.Equal(t, 2, res.Points)
	require.NotNil(t, res.LastSessionDate)
	assert.Equal(t, "2026-03-02", *res.LastSessionDate)
	assert.Equal(t, "2026-03-02", *res.StreakStartDate)
	assert.Nil(t, res.LastBonusDate)

	clk.Advance(5 * time.Hour)
	again, err := svc.RecordDailySession(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.PointsAwarded)
	assert.Equal(t, 2, again.Points)
	assert.Equal(t, 1, again.StreakDays)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, 2, stored.Points)
	assert.Equal(t, 2, stored.DailyPoints)
	assert.Equal(t, 2, stored.StreakPoints)
}

func TestRecordDailySession_WeekBonus(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "beto", "beto@example.com", "secret1")
	clk := newClock(2026, 3, 2, 18)
	svc := NewPointsService(db).WithClock(clk.Now)
	ctx := context.Background()

	var res *SessionResult
	var err error
	for day := 1; day <= 7; day++ {
		res, err = svc.RecordDailySession(ctx, user.ID)
		require.NoError(t, err)
		if day < 7 {
			assert.Equal(t, streak.SessionPoints, res.PointsAwarded, "day %d", day)
		}
		clk.NextDay()
	}

	assert.Equal(t, 7, res.StreakDays)
	assert.Equal(t, streak.SessionPoints+streak.WeekBonus, res.PointsAwarded)
	assert.Equal(t, streak.WeekBonus, res.BonusAwarded)
	assert.Equal(t, 7*streak.SessionPoints+streak.WeekBonus, res.Points)
	require.NotNil(t, res.LastBonusDate)
	assert.Equal(t, "2026-03-08", *res.LastBonusDate)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, 7*streak.SessionPoints, stored.DailyPoints)
	assert.Equal(t, 7*streak.SessionPoints+streak.WeekBonus, stored.StreakPoints)
}

// runConcurrently calls fn from n goroutines released at the same moment.
func runConcurrently(n int, fn func(i int)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
}

func TestRecordDailySession_ConcurrentFirstSessionAwardsOnce(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "hugo", "hugo@example.com", "secret1")
	clk := newClock(2026, 3, 2, 9)
	svc := NewPointsService(db).WithClock(clk.Now)

	const workers = 10
	awarded := make([]int, workers)
	errs := make([]error, workers)
	runConcurrently(workers, func(i int) {
		res, err := svc.RecordDailySession(context.Background(), user.ID)
		errs[i] = err
		if err == nil {
			awarded[i] = res.PointsAwarded
		}
	})

	total := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		total += awarded[i]
	}
	assert.Equal(t, streak.SessionPoints, total)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, streak.SessionPoints, stored.Points)
	assert.Equal(t, streak.SessionPoints, stored.DailyPoints)
	assert.Equal(t, 1, stored.StreakDays)
}

func TestRecordDailySession_ConcurrentWeekBonusPaidOnce(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ines", "ines@example.com", "secret1")
	clk := newClock(2026, 3, 2, 9)
	svc := NewPointsService(db).WithClock(clk.Now)
	ctx := context.Background()

	for day := 1; day <= 6; day++ {
		_, err := svc.RecordDailySession(ctx, user.ID)
		require.NoError(t, err)
		clk.NextDay()
	}

	const workers = 8
	results := make([]*SessionResult, workers)
	errs := make([]error, workers)
	runConcurrently(workers, func(i int) {
		results[i], errs[i] = svc.RecordDailySession(context.Background(), user.ID)
	})

	bonuses, awarded := 0, 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		awarded += results[i].PointsAwarded
		if results[i].BonusAwarded > 0 {
			bonuses++
		}
	}
	assert.Equal(t, 1, bonuses)
	assert.Equal(t, streak.SessionPoints+streak.WeekBonus, awarded)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, 7, stored.StreakDays)
	assert.Equal(t, 7*streak.SessionPoints+streak.WeekBonus, stored.Points)
}

func TestRecordDailySession_GapResetsStreak(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "caro", "caro@example.com", "secret1")
	clk := newClock(2026, 3, 2, 12)
	svc := NewPointsService(db).WithClock(clk.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.RecordDailySession(ctx, user.ID)
		require.NoError(t, err)
		clk.NextDay()
	}
	clk.NextDay()

	res, err := svc.RecordDailySession(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.StreakDays)
	assert.Equal(t, 8, res.Points)
	assert.Equal(t, "2026-03-06", *res.StreakStartDate)
}

func TestRecordDailySession_UnknownUser(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewPointsService(db).RecordDailySession(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecordActivity(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "dani", "dani@example.com", "secret1")
	svc := NewPointsService(db)
	ctx := context.Background()

	res, err := svc.RecordActivity(ctx, user.ID, "Caja")
	require.NoError(t, err)
	assert.Equal(t, 10, res.PointsAwarded)
	assert.Equal(t, 10, res.Points)

	res, err = svc.RecordActivity(ctx, user.ID, "poder")
	require.NoError(t, err)
	assert.Equal(t, 25, res.Points)

	res, err = svc.RecordActivity(ctx, user.ID, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, res.PointsAwarded)
	assert.Equal(t, 25, res.Points)

	res, err = svc.RecordActivity(ctx, user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.PointsAwarded)
	assert.Equal(t, 25, res.Points)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, 25, stored.Points)
	assert.Equal(t, 0, stored.StreakDays)
}

func TestStreakStatus(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "eli", "eli@example.com", "secret1")
	clk := newClock(2026, 3, 2, 12)
	svc := NewPointsService(db).WithClock(clk.Now)
	ctx := context.Background()

	_, err := svc.RecordDailySession(ctx, user.ID)
	require.NoError(t, err)

	st, err := svc.StreakStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, st.Alive)
	assert.True(t, st.SessionDoneToday)
	assert.Equal(t, streak.WeekMilestone, st.NextMilestone)
	assert.Equal(t, 6, st.DaysToMilestone)

	clk.NextDay()
	clk.NextDay()
	st, err = svc.StreakStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, st.Alive)
	assert.Equal(t, 0, st.StreakDays)
	assert.Equal(t, 2, st.Points)
}

func TestAwardSnippet_OncePerDay(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "fer", "fer@example.com", "secret1")
	clk := newClock(2026, 3, 2, 10)
	svc := NewPointsService(db).WithClock(clk.Now)
	ctx := context.Background()

	award, err := svc.AwardSnippet(ctx, user.ID, "snippet-1", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSnippetPoints, award.PointsAdded)
	assert.Equal(t, DefaultSnippetPoints, award.TotalPoints)
	assert.Equal(t, int64(1), award.SnippetsToday)
	assert.Equal(t, "fer", award.Username)

	_, err = svc.AwardSnippet(ctx, user.ID, "snippet-1", 0)
	assert.ErrorIs(t, err, ErrSnippetAlreadyAwarded)

	award, err = svc.AwardSnippet(ctx, user.ID, "snippet-2", 5)
	require.NoError(t, err)
	assert.Equal(t, 15, award.TotalPoints)
	assert.Equal(t, int64(2), award.SnippetsToday)

	clk.NextDay()
	award, err = svc.AwardSnippet(ctx, user.ID, "snippet-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 25, award.TotalPoints)
	assert.Equal(t, int64(1), award.SnippetsToday)
}

func TestAwardSnippet_ConcurrentSameSnippetAwardsOnce(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "jose", "jose@example.com", "secret1")
	clk := newClock(2026, 3, 2, 10)
	svc := NewPointsService(db).WithClock(clk.Now)

	const workers = 6
	errs := make([]error, workers)
	runConcurrently(workers, func(i int) {
		_, errs[i] = svc.AwardSnippet(context.Background(), user.ID, "snippet-1", 0)
	})

	granted := 0
	for _, err := range errs {
		if err == nil {
			granted++
			continue
		}
		assert.ErrorIs(t, err, ErrSnippetAlreadyAwarded)
	}
	assert.Equal(t, 1, granted)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, DefaultSnippetPoints, stored.Points)
}

func TestAppPoints(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "gabi", "gabi@example.com", "secret1")
	clk := newClock(2026, 3, 2, 10)
	svc := NewPointsService(db).WithClock(clk.Now)
	ctx := context.Background()

	_, err := svc.RecordDailySession(ctx, user.ID)
	require.NoError(t, err)
	_, err = svc.AwardSnippet(ctx, user.ID, "intro", 10)
	require.NoError(t, err)

	pts, err := svc.AppPoints(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, pts.Points)
	assert.Equal(t, 10, pts.SnippetPoints)
	assert.Equal(t, 2, pts.DailyPoints)
	assert.Equal(t, 1, pts.StreakDays)
	assert.Equal(t, 12, pts.TotalAppPoints)

	_, err = svc.AppPoints(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSnippetStats(t *testing.T) {
	db := testutil.NewDB(t)
	a := testutil.CreateUser(t, db, "hugo", "hugo@example.com", "secret1")
	b := testutil.CreateUser(t, db, "ines", "ines@example.com", "secret1")
	clk := newClock(2026, 3, 2, 10)
	svc := NewPointsService(db).WithClock(clk.Now)
	ctx := context.Background()

	_, err := svc.AwardSnippet(ctx, a.ID, "s1", 10)
	require.NoError(t, err)
	clk.NextDay()
	for _, id := range []string{"s1", "s2"} {
		_, err = svc.AwardSnippet(ctx, a.ID, id, 10)
		require.NoError(t, err)
	}
	_, err = svc.AwardSnippet(ctx, b.ID, "s1", 5)
	require.NoError(t, err)

	stats, err := svc.SnippetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.SnippetsToday)
	assert.Equal(t, int64(4), stats.SnippetsTotal)
	assert.Equal(t, int64(35), stats.PointsTotal)
	assert.Equal(t, int64(2), stats.ActiveUsersToday)
	require.NotEmpty(t, stats.TopSnippets)
	assert.Equal(t, "s1", stats.TopSnippets[0].SnippetID)
	assert.Equal(t, int64(3), stats.TopSnippets[0].Views)
	require.Len(t, stats.TopUsers, 2)
	assert.Equal(t, "hugo", stats.TopUsers[0].Username)
	assert.Equal(t, int64(30), stats.TopUsers[0].SnippetPoints)
	require.Len(t, stats.LastDays, 2)
	assert.Equal(t, "2026-03-03", stats.LastDays[0].Date)
	assert.Equal(t, int64(3), stats.LastDays[0].Snippets)
}
