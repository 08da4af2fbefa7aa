package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/streak"
	"github.com/cajaoblatos/oblatos34/utils"
)

// UserService covers login, listing and profile updates.
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: time.Now}
}

// ResolveUserID returns userID when set, otherwise looks the id up by username.
func ResolveUserID(ctx context.Context, db *gorm.DB, userID uint, username string) (uint, error) {
	if userID != 0 {
		return userID, nil
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, ErrUserNotFound
	}
	var user models.User
	if err := db.WithContext(ctx).Select("id").Where("nombre_usuario = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return user.ID, nil
}

// LoginResult carries the issued session token.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login checks the username or email against the stored bcrypt hash and issues a JWT.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	var user models.User
	err := s.db.WithContext(ctx).
		Where("nombre_usuario = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(user.ID, user.Username, utils.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: s.now().Add(utils.SessionTTL), User: &user}, nil
}

// UserSummary is one row of the admin user list.
type UserSummary struct {
	models.User
	LastSessionFormatted *string    `json:"last_session_formatted"`
	StreakStartFormatted *string    `json:"streak_start_formatted"`
	LastBonusFormatted   *string    `json:"last_bonus_formatted"`
	SnippetsViewed       int64      `json:"snippets_viewed"`
	SnippetPoints        int64      `json:"snippet_points"`
	SnippetsToday        int64      `json:"snippets_today"`
	LastSnippetAt        *time.Time `json:"last_snippet_at"`
	LastSnippetFormatted *string    `json:"last_snippet_formatted"`
}

type snippetAggregate struct {
	UserID uint
	Viewed int64
	Points int64
	Today  int64
	LastID uint
}

// ListUsers returns every user, newest first, with snippet aggregates.
func (s *UserService) ListUsers(ctx context.Context) ([]UserSummary, error) {
	db := s.db.WithContext(ctx)
	var users []models.User
	if err := db.Order("fecha_registro DESC, id DESC").Find(&users).Error; err != nil {
		return nil, err
	}

	today := streak.Day(s.now())
	var aggs []snippetAggregate
	if err := db.Model(&models.SnippetPoint{}).
		Select("user_id, COUNT(*) AS viewed, COALESCE(SUM(points), 0) AS points, "+
			"SUM(CASE WHEN award_date = ? THEN 1 ELSE 0 END) AS today, MAX(id) AS last_id", today).
		Group("user_id").
		Scan(&aggs).Error; err != nil {
		return nil, err
	}
	byUser := make(map[uint]snippetAggregate, len(aggs))
	lastIDs := make([]uint, 0, len(aggs))
	for _, a := range aggs {
		byUser[a.UserID] = a
		lastIDs = append(lastIDs, a.LastID)
	}

	// ids grow with time, so the max id per user is the latest reward
	lastViewed := map[uint]*time.Time{}
	if len(lastIDs) > 0 {
		var latest []models.SnippetPoint
		if err := db.Select("id, user_id, created_at").Where("id IN ?", lastIDs).Find(&latest).Error; err != nil {
			return nil, err
		}
		for i := range latest {
			lastViewed[latest[i].UserID] = &latest[i].CreatedAt
		}
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		a := byUser[u.ID]
		out = append(out, UserSummary{
			User:                 u,
			LastSessionFormatted: formatDate(u.LastSessionDate, displayDate),
			StreakStartFormatted: formatDate(u.StreakStartDate, displayDate),
			LastBonusFormatted:   formatDate(u.LastBonusDate, displayDate),
			SnippetsViewed:       a.Viewed,
			SnippetPoints:        a.Points,
			SnippetsToday:        a.Today,
			LastSnippetAt:        lastViewed[u.ID],
			LastSnippetFormatted: formatDate(lastViewed[u.ID], displayDate+" 15:04"),
		})
	}
	return out, nil
}

// ProfileInput holds the editable profile fields. All of them are required.
type ProfileInput struct {
	ChildName    string `json:"child_name" binding:"required,max=128"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required,max=32"`
	ParentName   string `json:"parent_name" binding:"required,max=128"`
	ProfileImage int    `json:"profile_image" binding:"required,gte=1"`
}

// UpdateProfile overwrites the profile fields of the user.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"nombre_menor":       utils.SanitizeText(in.ChildName),
		"email":              strings.TrimSpace(in.Email),
		"telefono":           utils.SanitizeText(in.Phone),
		"nombre_padre_madre": utils.SanitizeText(in.ParentName),
		"profile_image":      in.ProfileImage,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
