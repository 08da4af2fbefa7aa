package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

const (
	actionDailySession     = "sesion_diaria"
	actionCompleteActivity = "completar_actividad"
	actionStreakStatus     = "actualizar_racha"
)

// PointsController exposes the streak, activity and snippet rewards.
type PointsController struct {
	db     *gorm.DB
	points *services.PointsService
}

func NewPointsController(db *gorm.DB, points *services.PointsService) *PointsController {
	return &PointsController{db: db, points: points}
}

// UpdatePoints handles the daily session and completed activity actions for the current user.
func (p *PointsController) UpdatePoints(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	type request struct {
		Action   string `json:"action" binding:"required,oneof=sesion_diaria completar_actividad actualizar_racha"`
		Activity string `json:"actividad" binding:"omitempty,activity_kind"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	switch req.Action {
	case actionDailySession:
		res, err := p.points.RecordDailySession(ctx.Request.Context(), userID)
		if err != nil {
			respondError(ctx, err)
			return
		}
		utils.Success(ctx, res)
	case actionCompleteActivity:
		// a missing or unknown activity earns nothing
		res, err := p.points.RecordActivity(ctx.Request.Context(), userID, req.Activity)
		if err != nil {
			respondError(ctx, err)
			return
		}
		utils.Success(ctx, res)
	case actionStreakStatus:
		p.StreakStatus(ctx)
	}
}

// StreakStatus returns the current user's streak without changing it.
func (p *PointsController) StreakStatus(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	res, err := p.points.StreakStatus(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// AwardSnippet grants the snippet reward to the current user.
func (p *PointsController) AwardSnippet(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	type request struct {
		SnippetID string `json:"snippet_id" binding:"required,max=128"`
		Points    int    `json:"points" binding:"omitempty,gte=1,lte=100"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	res, err := p.points.AwardSnippet(ctx.Request.Context(), userID, req.SnippetID, req.Points)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, fmt.Sprintf("¡Ganaste %d puntos!", res.PointsAdded), res)
}

// SnippetStats returns the snippet dashboard. Admin only.
func (p *PointsController) SnippetStats(ctx *gin.Context) {
	res, err := p.points.SnippetStats(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// AppPoints returns the points breakdown of ?user_id= or ?username=, defaulting to the caller.
func (p *PointsController) AppPoints(ctx *gin.Context) {
	id, username, ok := userRef(ctx)
	if !ok {
		if id, ok = getUserID(ctx); !ok {
			utils.Error(ctx, http.StatusBadRequest, 40002, "user_id or username required")
			return
		}
	}
	userID, err := services.ResolveUserID(ctx.Request.Context(), p.db, id, username)
	if err != nil {
		respondError(ctx, err)
		return
	}
	res, err := p.points.AppPoints(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}
