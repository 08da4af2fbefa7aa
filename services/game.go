package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/utils"
)

const (
	RankingHighest = "highest"
	RankingRecent  = "recent"
	RankingLevel   = "level"

	defaultRankingLimit = 10
	maxRankingLimit     = 100
	streakRankingSize   = 100
	rankingCachePrefix  = "ranking:"
	streakRankingKey    = rankingCachePrefix + "streak"
)

// GameService stores mini-game scores and builds the leaderboards.
type GameService struct {
	db       *gorm.DB
	now      func() time.Time
	cacheTTL time.Duration
}

// NewGameService creates the service. cacheTTL applies to the streak ranking, zero disables caching.
func NewGameService(db *gorm.DB, cacheTTL time.Duration) *GameService {
	return &GameService{db: db, now: time.Now, cacheTTL: cacheTTL}
}

// ScoreInput is a finished game reported by the client.
type ScoreInput struct {
	UserID         uint `json:"user_id"`
	Score          int  `json:"score" binding:"gte=0"`
	LevelReached   int  `json:"level_reached" binding:"gte=0"`
	CoinsCollected int  `json:"coins_collected" binding:"gte=0"`
}

// SaveScore records a game and folds it into the per-user stats row with an atomic upsert.
func (s *GameService) SaveScore(ctx context.Context, in ScoreInput) (*models.GameUserStats, error) {
	if in.LevelReached <= 0 {
		in.LevelReached = 1
	}
	now := s.now()

	var stats models.GameUserStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id, nombre_usuario").First(&user, in.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		// leaderboards always show the account name
		username := user.Username

		score := models.GameScore{
			UserID:         in.UserID,
			Username:       username,
			Score:          in.Score,
			LevelReached:   in.LevelReached,
			CoinsCollected: in.CoinsCollected,
			GameDate:       now,
		}
		if err := tx.Create(&score).Error; err != nil {
			return err
		}

		row := models.GameUserStats{
			UserID:              in.UserID,
			Username:            username,
			TotalGamesPlayed:    1,
			HighestScore:        in.Score,
			HighestLevel:        in.LevelReached,
			TotalCoinsCollected: in.CoinsCollected,
			LastPlayed:          &now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"username":              username,
				"total_games_played":    gorm.Expr("total_games_played + 1"),
				"highest_score":         gorm.Expr("CASE WHEN highest_score < ? THEN ? ELSE highest_score END", in.Score, in.Score),
				"highest_level":         gorm.Expr("CASE WHEN highest_level < ? THEN ? ELSE highest_level END", in.LevelReached, in.LevelReached),
				"total_coins_collected": gorm.Expr("total_coins_collected + ?", in.CoinsCollected),
				"last_played":           now,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ?", in.UserID).First(&stats).Error
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// RankingEntry is one leaderboard row.
type RankingEntry struct {
	Position       int        `json:"position"`
	UserID         uint       `json:"user_id"`
	Username       string     `json:"username"`
	Score          int        `json:"score"`
	Level          int        `json:"level"`
	GamesPlayed    int        `json:"games_played,omitempty"`
	CoinsCollected int        `json:"coins_collected"`
	LastPlayed     *time.Time `json:"last_played"`
}

// ClampRankingLimit keeps limit within 1..100, defaulting to 10.
func ClampRankingLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultRankingLimit
	case limit > maxRankingLimit:
		return maxRankingLimit
	}
	return limit
}

// Ranking returns the leaderboard of the given type: best scores, latest games or highest levels.
func (s *GameService) Ranking(ctx context.Context, rankingType string, limit int) ([]RankingEntry, error) {
	limit = ClampRankingLimit(limit)
	db := s.db.WithContext(ctx)
	out := []RankingEntry{}

	switch strings.ToLower(rankingType) {
	case RankingRecent:
		var scores []models.GameScore
		if err := db.Order("game_date DESC, id DESC").Limit(limit).Find(&scores).Error; err != nil {
			return nil, err
		}
		for i, sc := range scores {
			played := sc.GameDate
			out = append(out, RankingEntry{
				Position:       i + 1,
				UserID:         sc.UserID,
				Username:       sc.Username,
				Score:          sc.Score,
				Level:          sc.LevelReached,
				CoinsCollected: sc.CoinsCollected,
				LastPlayed:     &played,
			})
		}
		return out, nil
	case RankingLevel:
		db = db.Order("highest_level DESC, highest_score DESC")
	default:
		db = db.Order("highest_score DESC, highest_level DESC")
	}

	var stats []models.GameUserStats
	if err := db.Limit(limit).Find(&stats).Error; err != nil {
		return nil, err
	}
	for i, st := range stats {
		out = append(out, RankingEntry{
			Position:       i + 1,
			UserID:         st.UserID,
			Username:       st.Username,
			Score:          st.HighestScore,
			Level:          st.HighestLevel,
			GamesPlayed:    st.TotalGamesPlayed,
			CoinsCollected: st.TotalCoinsCollected,
			LastPlayed:     st.LastPlayed,
		})
	}
	return out, nil
}

// GamePoints summarises a user's games.
type GamePoints struct {
	UserID         uint       `json:"user_id"`
	TotalScore     int64      `json:"total_score"`
	GamesPlayed    int        `json:"games_played"`
	HighestScore   int        `json:"highest_score"`
	HighestLevel   int        `json:"highest_level"`
	CoinsCollected int        `json:"coins_collected"`
	LastPlayed     *time.Time `json:"last_played"`
}

// GamePoints reads the stats row and falls back to the raw scores for users without one.
func (s *GameService) GamePoints(ctx context.Context, userID uint) (*GamePoints, error) {
	db := s.db.WithContext(ctx)
	var exists int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrUserNotFound
	}

	res := GamePoints{UserID: userID}
	if err := db.Model(&models.GameScore{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(score), 0)").Scan(&res.TotalScore).Error; err != nil {
		return nil, err
	}

	var stats models.GameUserStats
	err := db.Where("user_id = ?", userID).First(&stats).Error
	switch {
	case err == nil:
		res.GamesPlayed = stats.TotalGamesPlayed
		res.HighestScore = stats.HighestScore
		res.HighestLevel = stats.HighestLevel
		res.CoinsCollected = stats.TotalCoinsCollected
		res.LastPlayed = stats.LastPlayed
	case errors.Is(err, gorm.ErrRecordNotFound):
		var agg struct {
			Games  int
			MaxSc  int
			MaxLvl int
			Coins  int
		}
		if err := db.Model(&models.GameScore{}).Where("user_id = ?", userID).
			Select("COUNT(*) AS games, COALESCE(MAX(score), 0) AS max_sc, COALESCE(MAX(level_reached), 0) AS max_lvl, COALESCE(SUM(coins_collected), 0) AS coins").
			Scan(&agg).Error; err != nil {
			return nil, err
		}
		res.GamesPlayed = agg.Games
		res.HighestScore = agg.MaxSc
		res.HighestLevel = agg.MaxLvl
		res.CoinsCollected = agg.Coins
		if agg.Games > 0 {
			var last models.GameScore
			if err := db.Where("user_id = ?", userID).Order("game_date DESC").First(&last).Error; err == nil {
				res.LastPlayed = &last.GameDate
			}
		}
	default:
		return nil, err
	}
	return &res, nil
}

// StreakRankingEntry is one row of the streak leaderboard.
type StreakRankingEntry struct {
	Position     int     `json:"position"`
	UserID       uint    `json:"user_id"`
	Username     string  `json:"username"`
	ChildName    string  `json:"child_name"`
	ProfileImage int     `json:"profile_image"`
	StreakPoints int     `json:"streak_points"`
	StreakDays   int     `json:"streak_days"`
	LastSession  *string `json:"last_session"`
	StreakStart  *string `json:"streak_start"`
}

// StreakRanking lists the top users by streak points, then streak days. Results are cached briefly.
func (s *GameService) StreakRanking(ctx context.Context) ([]StreakRankingEntry, error) {
	if s.cacheTTL > 0 {
		var cached []StreakRankingEntry
		if utils.CacheGetJSON(streakRankingKey, &cached) {
			return cached, nil
		}
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("racha_points > 0").
		Order("racha_points DESC, racha_dias DESC, id ASC").
		Limit(streakRankingSize).
		Find(&users).Error; err != nil {
		return nil, err
	}

	out := make([]StreakRankingEntry, 0, len(users))
	for i, u := range users {
		out = append(out, StreakRankingEntry{
			Position:     i + 1,
			UserID:       u.ID,
			Username:     u.Username,
			ChildName:    u.ChildName,
			ProfileImage: u.ProfileImage,
			StreakPoints: u.StreakPoints,
			StreakDays:   u.StreakDays,
			LastSession:  formatDate(u.LastSessionDate, displayDate),
			StreakStart:  formatDate(u.StreakStartDate, displayDate),
		})
	}
	if s.cacheTTL > 0 {
		utils.CacheSetJSON(streakRankingKey, out, s.cacheTTL)
	}
	return out, nil
}
