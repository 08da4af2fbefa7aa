package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

// GameController exposes game scores and the leaderboards.
type GameController struct {
	db    *gorm.DB
	games *services.GameService
}

func NewGameController(db *gorm.DB, games *services.GameService) *GameController {
	return &GameController{db: db, games: games}
}

// SaveScore records a finished game for the current user.
func (g *GameController) SaveScore(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req services.ScoreInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	req.UserID = userID

	stats, err := g.games.SaveScore(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// Ranking returns ?type=highest|recent|level limited by ?limit= (1..100).
func (g *GameController) Ranking(ctx *gin.Context) {
	type query struct {
		Type  string `form:"type" binding:"omitempty,ranking_type"`
		Limit int    `form:"limit"`
	}
	var q query
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}
	if q.Type == "" {
		q.Type = services.RankingHighest
	}
	entries, err := g.games.Ranking(ctx.Request.Context(), q.Type, q.Limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"type": q.Type, "ranking": entries, "total": len(entries)})
}

// GamePoints returns the game summary of ?user_id= or ?username=, defaulting to the caller.
func (g *GameController) GamePoints(ctx *gin.Context) {
	id, username, ok := userRef(ctx)
	if !ok {
		if id, ok = getUserID(ctx); !ok {
			utils.Error(ctx, http.StatusBadRequest, 40002, "user_id or username required")
			return
		}
	}
	userID, err := services.ResolveUserID(ctx.Request.Context(), g.db, id, username)
	if err != nil {
		respondError(ctx, err)
		return
	}
	res, err := g.games.GamePoints(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// StreakRanking returns the streak leaderboard.
func (g *GameController) StreakRanking(ctx *gin.Context) {
	entries, err := g.games.StreakRanking(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"ranking": entries, "total": len(entries)})
}
