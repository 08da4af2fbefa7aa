package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/testutil"
)

func TestSaveScore_FoldsIntoStats(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "juan", "juan@example.com", "secret1")
	svc := NewGameService(db, 0)
	ctx := context.Background()

	stats, err := svc.SaveScore(ctx, ScoreInput{UserID: user.ID, Score: 120, LevelReached: 3, CoinsCollected: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalGamesPlayed)
	assert.Equal(t, 120, stats.HighestScore)
	assert.Equal(t, "juan", stats.Username)

	stats, err = svc.SaveScore(ctx, ScoreInput{UserID: user.ID, Score: 80, LevelReached: 5, CoinsCollected: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalGamesPlayed)
	assert.Equal(t, 120, stats.HighestScore)
	assert.Equal(t, 5, stats.HighestLevel)
	assert.Equal(t, 10, stats.TotalCoinsCollected)
	assert.NotNil(t, stats.LastPlayed)

	var count int64
	require.NoError(t, db.Model(&models.GameScore{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSaveScore_DefaultsLevelAndRejectsUnknownUser(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "kari", "kari@example.com", "secret1")
	svc := NewGameService(db, 0)

	stats, err := svc.SaveScore(context.Background(), ScoreInput{UserID: user.ID, Score: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.HighestLevel)

	_, err = svc.SaveScore(context.Background(), ScoreInput{UserID: 777, Score: 1})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestClampRankingLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 10},
		{-4, 10},
		{1, 1},
		{50, 50},
		{100, 100},
		{101, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampRankingLimit(tt.in), "limit %d", tt.in)
	}
}

func TestRanking(t *testing.T) {
	db := testutil.NewDB(t)
	a := testutil.CreateUser(t, db, "luis", "luis@example.com", "secret1")
	b := testutil.CreateUser(t, db, "mara", "mara@example.com", "secret1")
	svc := NewGameService(db, 0)
	ctx := context.Background()

	_, err := svc.SaveScore(ctx, ScoreInput{UserID: a.ID, Score: 300, LevelReached: 2})
	require.NoError(t, err)
	_, err = svc.SaveScore(ctx, ScoreInput{UserID: b.ID, Score: 200, LevelReached: 6})
	require.NoError(t, err)

	highest, err := svc.Ranking(ctx, RankingHighest, 10)
	require.NoError(t, err)
	require.Len(t, highest, 2)
	assert.Equal(t, "luis", highest[0].Username)
	assert.Equal(t, 1, highest[0].Position)

	level, err := svc.Ranking(ctx, "LEVEL", 10)
	require.NoError(t, err)
	require.Len(t, level, 2)
	assert.Equal(t, "mara", level[0].Username)

	recent, err := svc.Ranking(ctx, RankingRecent, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "mara", recent[0].Username)
}

func TestGamePoints_FallsBackToScores(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "nico", "nico@example.com", "secret1")
	svc := NewGameService(db, 0)
	ctx := context.Background()

	// scores without a stats row, as imported from older data
	now := time.Now()
	require.NoError(t, db.Create(&[]models.GameScore{
		{UserID: user.ID, Username: "nico", Score: 40, LevelReached: 2, CoinsCollected: 1, GameDate: now.Add(-time.Hour)},
		{UserID: user.ID, Username: "nico", Score: 90, LevelReached: 4, CoinsCollected: 2, GameDate: now},
	}).Error)

	pts, err := svc.GamePoints(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(130), pts.TotalScore)
	assert.Equal(t, 2, pts.GamesPlayed)
	assert.Equal(t, 90, pts.HighestScore)
	assert.Equal(t, 4, pts.HighestLevel)
	assert.Equal(t, 3, pts.CoinsCollected)
	assert.NotNil(t, pts.LastPlayed)

	_, err = svc.GamePoints(ctx, 12345)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStreakRanking(t *testing.T) {
	db := testutil.NewDB(t)
	clk := newClock(2026, 3, 2, 10)
	points := NewPointsService(db).WithClock(clk.Now)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "olga", "olga@example.com", "secret1")
	b := testutil.CreateUser(t, db, "pepe", "pepe@example.com", "secret1")
	testutil.CreateUser(t, db, "quim", "quim@example.com", "secret1")

	for i := 0; i < 3; i++ {
		_, err := points.RecordDailySession(ctx, a.ID)
		require.NoError(t, err)
		clk.NextDay()
	}
	_, err := points.RecordDailySession(ctx, b.ID)
	require.NoError(t, err)

	ranking, err := NewGameService(db, 0).StreakRanking(ctx)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, "olga", ranking[0].Username)
	assert.Equal(t, 6, ranking[0].StreakPoints)
	assert.Equal(t, 3, ranking[0].StreakDays)
	require.NotNil(t, ranking[0].StreakStart)
	assert.Equal(t, "02/03/2026", *ranking[0].StreakStart)
	assert.Equal(t, 2, ranking[1].Position)
}

func TestStreakRanking_CachedUntilNextSession(t *testing.T) {
	db := testutil.NewDB(t)
	clk := newClock(2026, 3, 2, 10)
	points := NewPointsService(db).WithClock(clk.Now)
	games := NewGameService(db, time.Minute)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "rosa", "rosa@example.com", "secret1")
	_, err := points.RecordDailySession(ctx, a.ID)
	require.NoError(t, err)

	first, err := games.StreakRanking(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// direct writes bypass the service and are not visible until the entry is invalidated
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", a.ID).Update("racha_points", 99).Error)
	cached, err := games.StreakRanking(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cached[0].StreakPoints)

	b := testutil.CreateUser(t, db, "saul", "saul@example.com", "secret1")
	_, err = points.RecordDailySession(ctx, b.ID)
	require.NoError(t, err)

	fresh, err := games.StreakRanking(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, 99, fresh[0].StreakPoints)
}
