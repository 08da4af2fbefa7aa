package controllers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cajaoblatos/oblatos34/services"
	"github.com/cajaoblatos/oblatos34/utils"
)

// ResetPageName is the template name registered on the engine.
const ResetPageName = "password_reset"

// ResetPageTemplate renders the password reset form and its outcome.
var ResetPageTemplate = template.Must(template.New(ResetPageName).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Restablecer password - Oblatos 34</title>
<style>
body{font-family:sans-serif;background:#f4f6fb;margin:0;padding:2rem}
.card{max-width:420px;margin:auto;background:#fff;border-radius:12px;padding:2rem;box-shadow:0 2px 10px rgba(0,0,0,.08)}
input{width:100%;padding:.6rem;margin:.4rem 0 1rem;box-sizing:border-box}
button{width:100%;padding:.7rem;background:#3b5bdb;color:#fff;border:0;border-radius:6px}
.error{color:#c92a2a}.ok{color:#2b8a3e}
</style>
</head>
<body>
<div class="card">
<h2>Restablecer password</h2>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Done}}<p class="ok">{{.Done}}</p>{{end}}
{{if .ShowForm}}
<form method="post" action="/password/reset">
<input type="hidden" name="token" value="{{.Token}}">
<label>Nuevo password</label>
<input type="password" name="password" minlength="6" required>
<label>Confirmar password</label>
<input type="password" name="confirm_password" minlength="6" required>
<button type="submit">Guardar</button>
</form>
{{end}}
</div>
</body>
</html>`))

type resetPage struct {
	Token    string
	Error    string
	Done     string
	ShowForm bool
}

// PasswordResetController serves the HTML page linked from the recovery mail.
type PasswordResetController struct {
	resets *services.PasswordResetService
}

func NewPasswordResetController(resets *services.PasswordResetService) *PasswordResetController {
	return &PasswordResetController{resets: resets}
}

func (p *PasswordResetController) ShowForm(ctx *gin.Context) {
	token := ctx.Query("token")
	if err := p.resets.ValidateToken(ctx.Request.Context(), token); err != nil {
		p.render(ctx, statusForResetError(err), resetPage{Error: resetErrorMessage(err)})
		return
	}
	p.render(ctx, http.StatusOK, resetPage{Token: token, ShowForm: true})
}

func (p *PasswordResetController) Submit(ctx *gin.Context) {
	token := ctx.PostForm("token")
	err := p.resets.ResetPassword(ctx.Request.Context(), token,
		ctx.PostForm("password"), ctx.PostForm("confirm_password"))
	if err != nil {
		page := resetPage{Token: token, Error: resetErrorMessage(err)}
		// the form stays usable for input mistakes
		page.ShowForm = errors.Is(err, services.ErrPasswordTooShort) || errors.Is(err, services.ErrPasswordMismatch)
		p.render(ctx, statusForResetError(err), page)
		return
	}
	p.render(ctx, http.StatusOK, resetPage{Done: "Tu password ha sido actualizado. Ya puedes cerrar esta ventana."})
}

func (p *PasswordResetController) render(ctx *gin.Context, status int, page resetPage) {
	ctx.HTML(status, ResetPageName, page)
}

func resetErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidResetToken):
		return "Token inválido"
	case errors.Is(err, services.ErrResetTokenUsed):
		return "Este enlace ya fue utilizado"
	case errors.Is(err, services.ErrResetTokenExpired):
		return "El enlace ha expirado"
	case errors.Is(err, services.ErrPasswordTooShort):
		return "Password mínimo 6 caracteres"
	case errors.Is(err, services.ErrPasswordMismatch):
		return "Los passwords no coinciden"
	default:
		utils.Sugar.Errorw("password reset failed", "error", err)
		return "No se pudo actualizar el password. Intenta de nuevo."
	}
}

func statusForResetError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidResetToken),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrPasswordMismatch):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrResetTokenUsed), errors.Is(err, services.ErrResetTokenExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
