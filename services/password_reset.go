package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cajaoblatos/oblatos34/config"
	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/utils"
)

const (
	resetTokenBytes  = 32
	resetMailSubject = "Restablecer tu password - Oblatos 34"
	resetMailBody    = "Hola %s,\n\n" +
		"Recibimos una solicitud para restablecer tu password.\n" +
		"Usa este enlace para crear un nuevo password (válido 1 hora):\n\n" +
		"%s\n\n" +
		"Si no solicitaste el cambio, ignora este mensaje."
)

// MailFunc delivers a plain text mail.
type MailFunc func(to, subject, body string) error

// PasswordResetService implements the email based password recovery.
type PasswordResetService struct {
	db       *gorm.DB
	now      func() time.Time
	send     MailFunc
	baseURL  string
	ttl      time.Duration
	cooldown time.Duration
}

func NewPasswordResetService(db *gorm.DB, cfg config.AppConfig) *PasswordResetService {
	return &PasswordResetService{
		db:  db,
		now: time.Now,
		send: func(to, subject, body string) error {
			return utils.SendMail(to, subject, body, false)
		},
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		ttl:      cfg.ResetTokenTTL,
		cooldown: cfg.RecoveryCooldown,
	}
}

// WithMailer replaces the mail transport.
func (s *PasswordResetService) WithMailer(send MailFunc) *PasswordResetService {
	s.send = send
	return s
}

// RequestReset creates a one-hour token for the account behind email and mails the reset link.
// Unknown emails, cooldowns and mail failures are not reported to the caller so the endpoint
// cannot be used to discover accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !utils.CooldownTrySet("recover:"+email, s.cooldown) {
		utils.Sugar.Infow("password recovery cooling down", "email", email)
		return nil
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := utils.RandomHex(resetTokenBytes)
	if err != nil {
		return err
	}
	reset := models.PasswordReset{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: s.now().Add(s.ttl),
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&reset).Error; err != nil {
		return err
	}

	link := s.baseURL + "/password/reset?token=" + url.QueryEscape(token)
	body := fmt.Sprintf(resetMailBody, user.Username, link)
	if err := s.send(user.Email, resetMailSubject, body); err != nil {
		utils.Sugar.Errorw("password recovery mail failed", "user_id", user.ID, "error", err)
	}
	return nil
}

func (s *PasswordResetService) checkToken(r *models.PasswordReset) error {
	if r.Used {
		return ErrResetTokenUsed
	}
	if s.now().After(r.ExpiresAt) {
		return ErrResetTokenExpired
	}
	return nil
}

// ValidateToken reports whether token can still be used. The page is only rendered for valid tokens.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	var r models.PasswordReset
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	return s.checkToken(&r)
}

// ResetPassword sets a new password. The token row is locked so a link works exactly once, and all
// other tokens of the user are invalidated.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if len(password) < utils.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.PasswordReset
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("token = ?", token).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}
		if err := s.checkToken(&r); err != nil {
			return err
		}

		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", r.UserID).Update("password", hash).Error; err != nil {
			return err
		}
		return tx.Model(&models.PasswordReset{}).Where("user_id = ?", r.UserID).Update("used", true).Error
	})
}
