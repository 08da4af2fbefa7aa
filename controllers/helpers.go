package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cajaoblatos/oblatos34/config"
	"github.com/cajaoblatos/oblatos34/middleware"
	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

func isAdminUsername(username string) bool {
	return config.Get().IsAdmin(username)
}

// userRef reads ?user_id= or ?username=.
func userRef(ctx *gin.Context) (uint, string, bool) {
	username := ctx.Query("username")
	raw := ctx.Query("user_id")
	if raw == "" {
		return 0, username, username != ""
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}
	return uint(id), username, true
}

// respondError maps service errors to the response envelope.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
	case errors.Is(err, services.ErrEventNotFound):
		utils.Error(ctx, http.StatusNotFound, 40402, "event not found")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
	case errors.Is(err, services.ErrSnippetAlreadyAwarded):
		utils.Error(ctx, http.StatusConflict, 40901, "snippet points already granted today")
	case errors.Is(err, services.ErrInvalidEventTime):
		utils.Error(ctx, http.StatusBadRequest, 40010, "event end must not be before its start")
	case errors.Is(err, services.ErrPushNotConfigured):
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "push notifications not configured")
	case errors.Is(err, services.ErrCalendarNotConfigured):
		utils.Error(ctx, http.StatusServiceUnavailable, 50302, "google calendar not configured")
	default:
		utils.Sugar.Errorw("request failed",
			"path", ctx.FullPath(), "request_id", ctx.GetString(utils.RequestIDKey), "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func badRequest(ctx *gin.Context, err error) {
	utils.Error(ctx, http.StatusBadRequest, 40001, utils.ValidationMessage(err))
}
