package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

// EventController exposes calendar events and the Google Calendar sync.
type EventController struct {
	events *services.EventService
	sync   *services.CalendarSyncService
}

// NewEventController builds the controller. sync may be nil when Google Calendar is not configured.
func NewEventController(events *services.EventService, sync *services.CalendarSyncService) *EventController {
	return &EventController{events: events, sync: sync}
}

// ListEvents returns the next events.
func (e *EventController) ListEvents(ctx *gin.Context) {
	events, err := e.events.ListUpcoming(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"events": events, "total": len(events)})
}

// SaveEvent creates an event, or updates it when the payload carries an id.
func (e *EventController) SaveEvent(ctx *gin.Context) {
	var req services.EventInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	creating := req.ID == 0
	ev, err := e.events.Save(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if creating {
		utils.Respond(ctx, http.StatusCreated, 0, "Evento creado", ev)
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "Evento actualizado", ev)
}

func (e *EventController) DeleteEvent(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid event id")
		return
	}
	if err := e.events.Delete(ctx.Request.Context(), uint(id)); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "Evento eliminado", gin.H{"id": id})
}

// UpcomingEvents hands out the events due for a reminder and marks them notified.
func (e *EventController) UpcomingEvents(ctx *gin.Context) {
	events, err := e.events.ClaimUpcoming(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"events": events, "total": len(events)})
}

// SyncCalendar runs one Google Calendar sync.
func (e *EventController) SyncCalendar(ctx *gin.Context) {
	if e.sync == nil {
		respondError(ctx, services.ErrCalendarNotConfigured)
		return
	}
	report, err := e.sync.Sync(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, report)
}
