package models

import "time"

// SnippetPoint records one reward for viewing a code snippet. AwardDate backs the once-per-day rule.
type SnippetPoint struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_snippet_daily,priority:1" json:"user_id"`
	SnippetID string    `gorm:"size:128;not null;uniqueIndex:idx_snippet_daily,priority:2;index" json:"snippet_id"`
	AwardDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_snippet_daily,priority:3" json:"award_date"`
	Points    int       `gorm:"not null" json:"points"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (SnippetPoint) TableName() string { return "snippet_points" }

func (SnippetPoint) AdditiveColumns() []string { return []string{"AwardDate"} }
