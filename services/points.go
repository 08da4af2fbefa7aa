package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/streak"
	"github.com/cajaoblatos/oblatos34/utils"
)

// DefaultSnippetPoints is granted when the client does not send an amount.
const DefaultSnippetPoints = 10

// PointsService persists the streak engine results and the snippet rewards.
type PointsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPointsService(db *gorm.DB) *PointsService {
	return &PointsService{db: db, now: time.Now}
}

// WithClock replaces the clock, used by tests and backfills.
func (s *PointsService) WithClock(now func() time.Time) *PointsService {
	s.now = now
	return s
}

// SessionResult is returned by RecordDailySession.
type SessionResult struct {
	Points          int     `json:"points"`
	StreakDays      int     `json:"streak_days"`
	PointsAwarded   int     `json:"points_awarded"`
	BonusAwarded    int     `json:"bonus_awarded"`
	LastSessionDate *string `json:"last_session_date"`
	StreakStartDate *string `json:"streak_start_date"`
	LastBonusDate   *string `json:"last_bonus_date"`
}

// ActivityResult is returned by RecordActivity.
type ActivityResult struct {
	Points        int    `json:"points"`
	PointsAwarded int    `json:"points_awarded"`
	Activity      string `json:"activity"`
}

// lockUser loads the user row with SELECT ... FOR UPDATE inside tx.
func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// RecordDailySession applies today's session for the user. Concurrent calls for the same user are
// serialized by the row lock, so the base points and any bonus are granted once.
func (s *PointsService) RecordDailySession(ctx context.Context, userID uint) (*SessionResult, error) {
	var res SessionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		next, awarded := streak.RecordDailySession(user.StreakState(), s.now())
		if awarded > 0 {
			user.ApplyStreakState(next)
			user.StreakPoints += awarded
			user.DailyPoints += streak.SessionPoints
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
				"puntos":             user.Points,
				"puntos_diarios":     user.DailyPoints,
				"racha_points":       user.StreakPoints,
				"racha_dias":         user.StreakDays,
				"ultima_sesion":      user.LastSessionDate,
				"fecha_inicio_racha": user.StreakStartDate,
				"ultimo_bonus_racha": user.LastBonusDate,
			}).Error; err != nil {
				return fmt.Errorf("save streak state: %w", err)
			}
		}

		res = SessionResult{
			Points:          user.Points,
			StreakDays:      user.StreakDays,
			PointsAwarded:   awarded,
			LastSessionDate: formatDate(user.LastSessionDate, isoDate),
			StreakStartDate: formatDate(user.StreakStartDate, isoDate),
			LastBonusDate:   formatDate(user.LastBonusDate, isoDate),
		}
		if awarded > streak.SessionPoints {
			res.BonusAwarded = awarded - streak.SessionPoints
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.PointsAwarded > 0 {
		utils.InvalidateByPrefix(rankingCachePrefix)
		utils.PointsAwarded.WithLabelValues("session").Add(float64(res.PointsAwarded - res.BonusAwarded))
		if res.BonusAwarded > 0 {
			utils.PointsAwarded.WithLabelValues("bonus").Add(float64(res.BonusAwarded))
			utils.Sugar.Infow("streak bonus granted", "user_id", userID, "streak_days", res.StreakDays, "bonus", res.BonusAwarded)
		}
	}
	return &res, nil
}

// RecordActivity adds the fixed reward for a completed activity.
func (s *PointsService) RecordActivity(ctx context.Context, userID uint, kind string) (*ActivityResult, error) {
	var res ActivityResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		next, awarded := streak.RecordActivity(user.StreakState(), streak.ActivityKind(kind))
		if awarded > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
				Update("puntos", next.Points).Error; err != nil {
				return fmt.Errorf("save activity points: %w", err)
			}
		}
		res = ActivityResult{Points: next.Points, PointsAwarded: awarded, Activity: kind}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.PointsAwarded > 0 {
		utils.PointsAwarded.WithLabelValues("activity").Add(float64(res.PointsAwarded))
	}
	return &res, nil
}

// StreakStatusResult is the read-only streak view.
type StreakStatusResult struct {
	streak.Status
	Points          int     `json:"points"`
	LastSessionDate *string `json:"last_session_date"`
	StreakStartDate *string `json:"streak_start_date"`
	LastBonusDate   *string `json:"last_bonus_date"`
}

// StreakStatus reports whether the user's streak is still alive and how far the next milestone is.
func (s *PointsService) StreakStatus(ctx context.Context, userID uint) (*StreakStatusResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &StreakStatusResult{
		Status:          streak.StatusAt(user.StreakState(), s.now()),
		Points:          user.Points,
		LastSessionDate: formatDate(user.LastSessionDate, isoDate),
		StreakStartDate: formatDate(user.StreakStartDate, isoDate),
		LastBonusDate:   formatDate(user.LastBonusDate, isoDate),
	}, nil
}

// SnippetAward is returned by AwardSnippet.
type SnippetAward struct {
	PointsAdded   int    `json:"points_added"`
	TotalPoints   int    `json:"total_points"`
	SnippetsToday int64  `json:"snippets_today"`
	Username      string `json:"username"`
}

// AwardSnippet grants points for viewing a snippet, at most once per user, snippet and day.
func (s *PointsService) AwardSnippet(ctx context.Context, userID uint, snippetID string, points int) (*SnippetAward, error) {
	if points <= 0 {
		points = DefaultSnippetPoints
	}
	now := s.now()
	today := streak.Day(now)

	var res SnippetAward
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.SnippetPoint{}).
			Where("user_id = ? AND snippet_id = ? AND award_date = ?", userID, snippetID, today).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrSnippetAlreadyAwarded
		}

		record := models.SnippetPoint{
			UserID:    userID,
			SnippetID: snippetID,
			AwardDate: today,
			Points:    points,
			CreatedAt: now,
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSnippetAlreadyAwarded
			}
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("puntos", gorm.Expr("puntos + ?", points)).Error; err != nil {
			return err
		}

		var todayCount int64
		if err := tx.Model(&models.SnippetPoint{}).
			Where("user_id = ? AND award_date = ?", userID, today).
			Count(&todayCount).Error; err != nil {
			return err
		}

		res = SnippetAward{
			PointsAdded:   points,
			TotalPoints:   user.Points + points,
			SnippetsToday: todayCount,
			Username:      user.Username,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.PointsAwarded.WithLabelValues("snippet").Add(float64(points))
	return &res, nil
}

// AppPoints summarises the points a user earned inside the app.
type AppPoints struct {
	UserID          uint    `json:"user_id"`
	Points          int     `json:"points"`
	SnippetPoints   int     `json:"snippet_points"`
	DailyPoints     int     `json:"daily_points"`
	StreakDays      int     `json:"streak_days"`
	LastSessionDate *string `json:"last_session_date"`
	StreakStartDate *string `json:"streak_start_date"`
	LastBonusDate   *string `json:"last_bonus_date"`
	TotalAppPoints  int     `json:"total_app_points"`
}

// AppPoints returns the point breakdown of a user. Snippet rewards are already part of Points, so
// the total equals Points and SnippetPoints is informational.
func (s *PointsService) AppPoints(ctx context.Context, userID uint) (*AppPoints, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var snippetPoints int
	if err := db.Model(&models.SnippetPoint{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&snippetPoints).Error; err != nil {
		return nil, err
	}

	return &AppPoints{
		UserID:          user.ID,
		Points:          user.Points,
		SnippetPoints:   snippetPoints,
		DailyPoints:     user.DailyPoints,
		StreakDays:      user.StreakDays,
		LastSessionDate: formatDate(user.LastSessionDate, isoDate),
		StreakStartDate: formatDate(user.StreakStartDate, isoDate),
		LastBonusDate:   formatDate(user.LastBonusDate, isoDate),
		TotalAppPoints:  user.Points,
	}, nil
}

// SnippetCount is a snippet with the number of times it was rewarded.
type SnippetCount struct {
	SnippetID string `json:"snippet_id"`
	Views     int64  `json:"views"`
}

// SnippetUser is a user ranked by snippet points.
type SnippetUser struct {
	UserID        uint   `json:"user_id"`
	Username      string `json:"username"`
	ChildName     string `json:"child_name"`
	SnippetsSeen  int64  `json:"snippets_seen"`
	SnippetPoints int64  `json:"snippet_points"`
}

// SnippetDay aggregates one day of snippet rewards.
type SnippetDay struct {
	Date        string `json:"date"`
	Snippets    int64  `json:"snippets"`
	ActiveUsers int64  `json:"active_users"`
	Points      int64  `json:"points"`
}

// SnippetStats is the dashboard summary of snippet rewards.
type SnippetStats struct {
	SnippetsToday    int64          `json:"snippets_today"`
	SnippetsTotal    int64          `json:"snippets_total"`
	PointsTotal      int64          `json:"points_total"`
	ActiveUsersToday int64          `json:"active_users_today"`
	TopSnippets      []SnippetCount `json:"top_snippets"`
	TopUsers         []SnippetUser  `json:"top_users"`
	LastDays         []SnippetDay   `json:"last_days"`
}

// SnippetStats aggregates snippet rewards for the admin dashboard.
func (s *PointsService) SnippetStats(ctx context.Context) (*SnippetStats, error) {
	db := s.db.WithContext(ctx)
	today := streak.Day(s.now())
	stats := SnippetStats{TopSnippets: []SnippetCount{}, TopUsers: []SnippetUser{}, LastDays: []SnippetDay{}}

	if err := db.Model(&models.SnippetPoint{}).Where("award_date = ?", today).Count(&stats.SnippetsToday).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.SnippetPoint{}).Count(&stats.SnippetsTotal).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.SnippetPoint{}).Select("COALESCE(SUM(points), 0)").Scan(&stats.PointsTotal).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.SnippetPoint{}).Where("award_date = ?", today).
		Distinct("user_id").Count(&stats.ActiveUsersToday).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.SnippetPoint{}).
		Select("snippet_id, COUNT(*) AS views").
		Group("snippet_id").
		Order("views DESC").
		Limit(5).
		Scan(&stats.TopSnippets).Error; err != nil {
		return nil, err
	}

	if err := db.Table("snippet_points AS sp").
		Select("u.id AS user_id, u.nombre_usuario AS username, u.nombre_menor AS child_name, COUNT(sp.id) AS snippets_seen, SUM(sp.points) AS snippet_points").
		Joins("JOIN usuarios u ON u.id = sp.user_id").
		Group("u.id, u.nombre_usuario, u.nombre_menor").
		Order("snippet_points DESC").
		Limit(20).
		Scan(&stats.TopUsers).Error; err != nil {
		return nil, err
	}

	type dayRow struct {
		AwardDate   time.Time
		Snippets    int64
		ActiveUsers int64
		Points      int64
	}
	var rows []dayRow
	if err := db.Model(&models.SnippetPoint{}).
		Select("award_date, COUNT(*) AS snippets, COUNT(DISTINCT user_id) AS active_users, SUM(points) AS points").
		Where("award_date >= ?", today.AddDate(0, 0, -6)).
		Group("award_date").
		Order("award_date DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.LastDays = append(stats.LastDays, SnippetDay{
			Date:        r.AwardDate.Format(isoDate),
			Snippets:    r.Snippets,
			ActiveUsers: r.ActiveUsers,
			Points:      r.Points,
		})
	}
	return &stats, nil
}
