package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/testutil"
)

func TestSaveToken_InsertsThenRebinds(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "rita", "rita@example.com", "secret1")
	svc := NewDeviceService(db)
	ctx := context.Background()

	created, err := svc.SaveToken(ctx, " tok-1 ", nil)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.SaveToken(ctx, "tok-1", &user.ID)
	require.NoError(t, err)
	assert.False(t, created)

	var rows []models.DeviceToken
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "tok-1", rows[0].Token)
	require.NotNil(t, rows[0].UserID)
	assert.Equal(t, user.ID, *rows[0].UserID)
}
