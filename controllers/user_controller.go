package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

// UserController serves the admin user list and profile edits.
type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// ListUsers returns every user with streak and snippet data. Admin only.
func (u *UserController) ListUsers(ctx *gin.Context) {
	list, err := u.users.ListUsers(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"users": list, "total": len(list)})
}

// UpdateProfile replaces the caller's profile fields.
func (u *UserController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req services.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	user, err := u.users.UpdateProfile(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "Perfil actualizado exitosamente", userResponse(*user))
}
