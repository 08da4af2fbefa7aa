package models

import "time"

// GameScore is a single finished game.
type GameScore struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	Username       string    `gorm:"size:64" json:"username"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	LevelReached   int       `gorm:"not null;default:1" json:"level_reached"`
	CoinsCollected int       `gorm:"not null;default:0" json:"coins_collected"`
	GameDate       time.Time `gorm:"column:game_date;autoCreateTime;index" json:"game_date"`
}

func (GameScore) TableName() string { return "game_scores" }

// GameUserStats aggregates a user's games. One row per user.
type GameUserStats struct {
	UserID              uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username            string     `gorm:"size:64" json:"username"`
	TotalGamesPlayed    int        `gorm:"not null;default:0" json:"total_games_played"`
	HighestScore        int        `gorm:"not null;default:0" json:"highest_score"`
	HighestLevel        int        `gorm:"not null;default:0" json:"highest_level"`
	TotalCoinsCollected int        `gorm:"not null;default:0" json:"total_coins_collected"`
	LastPlayed          *time.Time `json:"last_played"`
}

func (GameUserStats) TableName() string { return "game_user_stats" }
