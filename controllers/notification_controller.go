package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

const (
	actionSendNotification  = "send_notification"
	actionSendEventReminder = "send_event_reminder"
)

// NotificationController sends push notifications and stores device tokens.
type NotificationController struct {
	push    *services.PushService
	devices *services.DeviceService
}

func NewNotificationController(push *services.PushService, devices *services.DeviceService) *NotificationController {
	return &NotificationController{push: push, devices: devices}
}

// Send pushes a free-form notification or an event reminder. Admin only.
func (n *NotificationController) Send(ctx *gin.Context) {
	type request struct {
		Action     string   `json:"action" binding:"required,oneof=send_notification send_event_reminder"`
		Title      string   `json:"title"`
		Message    string   `json:"message"`
		EventTitle string   `json:"event_title"`
		EventDate  string   `json:"event_date"`
		EventTime  string   `json:"event_time"`
		PlayerIDs  []string `json:"player_ids"`
		URL        string   `json:"url" binding:"omitempty,url"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	var (
		res *services.PushResult
		err error
	)
	switch req.Action {
	case actionSendNotification:
		if req.Title == "" || req.Message == "" {
			utils.Error(ctx, http.StatusBadRequest, 40020, "title and message are required")
			return
		}
		res, err = n.push.Send(ctx.Request.Context(), services.Notification{
			Title:     utils.SanitizeText(req.Title),
			Message:   utils.SanitizeText(req.Message),
			PlayerIDs: req.PlayerIDs,
			URL:       req.URL,
		})
	case actionSendEventReminder:
		if req.EventTitle == "" || req.EventDate == "" || req.EventTime == "" {
			utils.Error(ctx, http.StatusBadRequest, 40021, "event_title, event_date and event_time are required")
			return
		}
		res, err = n.push.SendEventReminder(ctx.Request.Context(),
			utils.SanitizeText(req.EventTitle), req.EventDate, req.EventTime, req.PlayerIDs)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !res.Success {
		utils.Respond(ctx, http.StatusBadGateway, 50201, "push provider rejected the notification", res)
		return
	}
	utils.Success(ctx, res)
}

// SaveDeviceToken registers a device for push. The token is bound to the user when authenticated.
func (n *NotificationController) SaveDeviceToken(ctx *gin.Context) {
	type request struct {
		Token string `json:"fcm_token" binding:"required,max=512"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	var userID *uint
	if id, ok := getUserID(ctx); ok {
		userID = &id
	}
	created, err := n.devices.SaveToken(ctx.Request.Context(), req.Token, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if created {
		utils.Respond(ctx, http.StatusCreated, 0, "Token registrado", gin.H{"created": true})
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "Token actualizado", gin.H{"created": false})
}
