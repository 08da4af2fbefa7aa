package models

import (
	"time"

	"github.com/cajaoblatos/oblatos34/streak"
)

// User maps the legacy usuarios table. Passwords are stored as bcrypt hashes only.
type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Username        string     `gorm:"column:nombre_usuario;size:64;not null;uniqueIndex" json:"username"`
	ChildName       string     `gorm:"column:nombre_menor;size:128" json:"child_name"`
	AgeRange        string     `gorm:"column:rango_edad;size:32" json:"age_range"`
	ParentName      string     `gorm:"column:nombre_padre_madre;size:128" json:"parent_name"`
	Email           string     `gorm:"column:email;size:255;index" json:"email"`
	Phone           string     `gorm:"column:telefono;size:32" json:"phone"`
	PasswordHash    string     `gorm:"column:password;size:255" json:"-"`
	ProfileImage    int        `gorm:"column:profile_image;default:1" json:"profile_image"`
	Points          int        `gorm:"column:puntos;default:0" json:"points"`
	DailyPoints     int        `gorm:"column:puntos_diarios;default:0" json:"daily_points"`
	StreakPoints    int        `gorm:"column:racha_points;default:0;index" json:"streak_points"`
	StreakDays      int        `gorm:"column:racha_dias;default:0" json:"streak_days"`
	LastSessionDate *time.Time `gorm:"column:ultima_sesion;type:date" json:"last_session_date"`
	StreakStartDate *time.Time `gorm:"column:fecha_inicio_racha;type:date" json:"streak_start_date"`
	LastBonusDate   *time.Time `gorm:"column:ultimo_bonus_racha;type:date" json:"last_bonus_date"`
	RegisteredAt    time.Time  `gorm:"column:fecha_registro;autoCreateTime" json:"registered_at"`
}

// TableName keeps the legacy table name.
func (User) TableName() string { return "usuarios" }

// AdditiveColumns lists columns that older deployments may lack.
func (User) AdditiveColumns() []string {
	return []string{"DailyPoints", "StreakPoints", "StreakStartDate", "LastBonusDate", "ProfileImage"}
}

// StreakState extracts the engine view of the row.
func (u *User) StreakState() streak.State {
	return streak.State{
		Points:          u.Points,
		StreakDays:      u.StreakDays,
		LastSessionDate: u.LastSessionDate,
		StreakStartDate: u.StreakStartDate,
		LastBonusDate:   u.LastBonusDate,
	}
}

// ApplyStreakState copies an engine result back onto the row.
func (u *User) ApplyStreakState(s streak.State) {
	u.Points = s.Points
	u.StreakDays = s.StreakDays
	u.LastSessionDate = s.LastSessionDate
	u.StreakStartDate = s.StreakStartDate
	u.LastBonusDate = s.LastBonusDate
}
