package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

// AuthController handles login and password recovery requests.
type AuthController struct {
	db     *gorm.DB
	users  *services.UserService
	resets *services.PasswordResetService
}

func NewAuthController(db *gorm.DB, users *services.UserService, resets *services.PasswordResetService) *AuthController {
	return &AuthController{db: db, users: users, resets: resets}
}

// Login accepts a username or email with the password and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	res, err := a.users.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       userResponse(*res.User),
	})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		respondError(ctx, services.ErrUserNotFound)
		return
	}
	utils.Success(ctx, userResponse(user))
}

// RecoverPassword starts the email recovery flow. The answer is the same whether or not the email exists.
func (a *AuthController) RecoverPassword(ctx *gin.Context) {
	type request struct {
		Email string `json:"email" binding:"required,email"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "email required")
		return
	}

	if err := a.resets.RequestReset(ctx.Request.Context(), req.Email); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "Si el email existe, enviaremos un enlace para restablecer tu password.", nil)
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":                user.ID,
		"username":          user.Username,
		"child_name":        user.ChildName,
		"parent_name":       user.ParentName,
		"email":             user.Email,
		"phone":             user.Phone,
		"profile_image":     user.ProfileImage,
		"points":            user.Points,
		"streak_days":       user.StreakDays,
		"last_session_date": user.LastSessionDate,
		"is_admin":          isAdminUsername(user.Username),
	}
}
