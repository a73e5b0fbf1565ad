package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrovision/internal/i18n"
	"agrovision/internal/model"
	"agrovision/internal/session"
	"agrovision/internal/transport/http/response"
)

// UserLookup confirms that a session's user still exists.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
}

// LoadSession resolves the logged-in user, if any, into the gin context.
// A failing session store, or a token whose account is gone, degrades to an
// anonymous request.
func LoadSession(sessions *session.Manager, users UserLookup, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok, err := sessions.CurrentUser(c.Request)
		if err != nil {
			log.Warn("session lookup failed", zap.Error(err))
		}
		if ok {
			user, err := users.GetUserByID(c.Request.Context(), userID)
			switch {
			case err != nil:
				log.Warn("session user lookup failed", zap.Uint("user_id", userID), zap.Error(err))
			case user == nil:
				log.Info("session refers to a missing user", zap.Uint("user_id", userID))
			default:
				c.Set(response.ContextUserIDKey, user.ID)
			}
		}
		c.Next()
	}
}

// RequireLogin redirects anonymous requests to the login page of the
// request language (English for language-less routes) before any handler
// work is done.
func RequireLogin(res *response.Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := response.UserID(c); ok {
			c.Next()
			return
		}

		lang := c.Param("lang")
		if !i18n.Supported(lang) {
			lang = i18n.DefaultLang
		}
		res.Redirect(c, "/"+lang+"/login", i18n.KeyLoginRequired, lang)
		c.Abort()
	}
}

// Lang validates the :lang path segment. Unknown languages are 404.
func Lang(res *response.Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := c.Param("lang")
		if !i18n.Supported(lang) {
			res.Error(c, http.StatusNotFound)
			return
		}
		c.Set(response.ContextLangKey, lang)
		c.Next()
	}
}
