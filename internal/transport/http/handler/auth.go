package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrovision/internal/app"
	"agrovision/internal/i18n"
	"agrovision/internal/session"
	"agrovision/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
	sessions    *session.Manager
	res         *response.Responder
	log         *zap.Logger
}

type credentialsForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func NewAuthHandler(authService *app.AuthService, sessions *session.Manager, res *response.Responder, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, res: res, log: log}
}

func (h *AuthHandler) SignupPage(c *gin.Context) {
	lang := response.Lang(c)
	h.res.Page(c, http.StatusOK, response.PageName(lang, "signup"), gin.H{"Page": "signup"})
}

func (h *AuthHandler) Signup(c *gin.Context) {
	lang := response.Lang(c)
	var form credentialsForm
	_ = c.ShouldBind(&form)

	_, err := h.authService.Signup(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrValidation):
			h.res.Redirect(c, "/"+lang+"/signup", i18n.KeyMissingFields, lang)
		case errors.Is(err, app.ErrConflict):
			h.res.Redirect(c, "/"+lang+"/signup", i18n.KeyUserExists, lang)
		default:
			h.log.Error("signup failed", zap.Error(err))
			h.res.Error(c, http.StatusInternalServerError)
		}
		return
	}

	h.res.Redirect(c, "/"+lang+"/login", i18n.KeySignupSuccess, lang)
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	lang := response.Lang(c)
	h.res.Page(c, http.StatusOK, response.PageName(lang, "login"), gin.H{"Page": "login"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	lang := response.Lang(c)
	var form credentialsForm
	_ = c.ShouldBind(&form)

	user, err := h.authService.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrValidation):
			h.res.Redirect(c, "/"+lang+"/login", i18n.KeyMissingFields, lang)
		case errors.Is(err, app.ErrNotFound):
			h.res.Redirect(c, "/"+lang+"/login", i18n.KeyEmailNotFound, lang)
		case errors.Is(err, app.ErrAuth):
			h.res.Redirect(c, "/"+lang+"/login", i18n.KeyWrongPassword, lang)
		default:
			h.log.Error("login failed", zap.Error(err))
			h.res.Error(c, http.StatusInternalServerError)
		}
		return
	}

	if err := h.sessions.Login(c.Writer, c.Request, user.ID); err != nil {
		h.log.Error("create session failed", zap.Uint("user_id", user.ID), zap.Error(err))
		h.res.Error(c, http.StatusInternalServerError)
		return
	}
	h.res.Redirect(c, "/"+lang+"/upload", i18n.KeyLoginSuccess, lang)
}

// Logout is language-less; the notice follows the last language the
// browser used.
func (h *AuthHandler) Logout(c *gin.Context) {
	lang := h.sessions.Lang(c.Request, i18n.DefaultLang)
	if err := h.sessions.Logout(c.Writer, c.Request); err != nil {
		h.log.Warn("destroy session failed", zap.Error(err))
	}
	h.res.Redirect(c, "/", i18n.KeyLoggedOut, lang)
}
