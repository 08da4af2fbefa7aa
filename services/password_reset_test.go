package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cajaoblatos/oblatos34/config"
	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/testutil"
	"github.com/cajaoblatos/oblatos34/utils"
)

type sentMail struct {
	to, subject, body string
}

type mailbox struct {
	sent []sentMail
	err  error
}

func (m *mailbox) send(to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to, subject, body})
	return m.err
}

var tokenInLink = regexp.MustCompile(`/password/reset\?token=([0-9a-f]{64})`)

func newResetService(t *testing.T) (*PasswordResetService, *mailbox, models.User) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "sara", t.Name()+"@example.com", "oldpass")
	box := &mailbox{}
	svc := NewPasswordResetService(db, config.AppConfig{
		PublicBaseURL:    "https://app.example.com/",
		ResetTokenTTL:    time.Hour,
		RecoveryCooldown: 0,
	}).WithMailer(box.send)
	return svc, box, user
}

func mailedToken(t *testing.T, box *mailbox) string {
	require.NotEmpty(t, box.sent)
	m := tokenInLink.FindStringSubmatch(box.sent[len(box.sent)-1].body)
	require.Len(t, m, 2)
	return m[1]
}

func TestRequestReset_MailsLink(t *testing.T) {
	svc, box, user := newResetService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "  "+user.Email+" "))
	require.Len(t, box.sent, 1)
	assert.Equal(t, user.Email, box.sent[0].to)
	assert.Equal(t, resetMailSubject, box.sent[0].subject)
	assert.Contains(t, box.sent[0].body, "https://app.example.com/password/reset?token=")
	assert.NoError(t, svc.ValidateToken(ctx, mailedToken(t, box)))
}

func TestRequestReset_UnknownEmailAndMailFailureAreSilent(t *testing.T) {
	svc, box, user := newResetService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "nadie@example.com"))
	assert.Empty(t, box.sent)

	box.err = errors.New("smtp down")
	assert.NoError(t, svc.RequestReset(ctx, user.Email))
}

func TestRequestReset_Cooldown(t *testing.T) {
	svc, box, user := newResetService(t)
	svc.cooldown = time.Minute
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, user.Email))
	require.NoError(t, svc.RequestReset(ctx, user.Email))
	assert.Len(t, box.sent, 1)
}

func TestResetPassword_Flow(t *testing.T) {
	svc, box, user := newResetService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, user.Email))
	first := mailedToken(t, box)
	require.NoError(t, svc.RequestReset(ctx, user.Email))
	second := mailedToken(t, box)

	assert.ErrorIs(t, svc.ResetPassword(ctx, first, "abc", "abc"), ErrPasswordTooShort)
	assert.ErrorIs(t, svc.ResetPassword(ctx, first, "newpass1", "newpass2"), ErrPasswordMismatch)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "nope", "newpass1", "newpass1"), ErrInvalidResetToken)

	require.NoError(t, svc.ResetPassword(ctx, first, "newpass1", "newpass1"))

	var stored models.User
	require.NoError(t, svc.db.First(&stored, user.ID).Error)
	assert.True(t, utils.CheckPassword(stored.PasswordHash, "newpass1"))
	assert.False(t, utils.CheckPassword(stored.PasswordHash, "oldpass"))

	assert.ErrorIs(t, svc.ResetPassword(ctx, first, "another1", "another1"), ErrResetTokenUsed)
	assert.ErrorIs(t, svc.ValidateToken(ctx, second), ErrResetTokenUsed)
}

func TestResetPassword_Expired(t *testing.T) {
	svc, box, user := newResetService(t)
	clk := newClock(2026, 8, 1, 10)
	svc.now = clk.Now
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, user.Email))
	token := mailedToken(t, box)

	clk.Advance(time.Hour + time.Second)
	assert.ErrorIs(t, svc.ValidateToken(ctx, token), ErrResetTokenExpired)
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "newpass1", "newpass1"), ErrResetTokenExpired)
}
