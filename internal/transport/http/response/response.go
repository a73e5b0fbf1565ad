package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrovision/internal/i18n"
	"agrovision/internal/session"
)

const (
	ContextUserIDKey = "user_id"
	ContextLangKey   = "lang"
)

// Responder renders pages and flash-carrying redirects for handlers.
type Responder struct {
	templates *Templates
	sessions  *session.Manager
	log       *zap.Logger
}

func NewResponder(templates *Templates, sessions *session.Manager, log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{templates: templates, sessions: sessions, log: log}
}

func (r *Responder) Has(name string) bool {
	return r.templates.Has(name)
}

// Page renders a layout-wrapped template. Pending flashes are consumed and
// shown before any extra notices passed in.
func (r *Responder) Page(c *gin.Context, status int, name string, data gin.H, extra ...i18n.Flash) {
	if data == nil {
		data = gin.H{}
	}

	flashes, err := r.sessions.Flashes(c.Writer, c.Request)
	if err != nil {
		r.log.Warn("read flashes failed", zap.Error(err))
	}
	flashes = append(flashes, extra...)

	lang := Lang(c)
	if err := r.sessions.SetLang(c.Writer, c.Request, lang); err != nil {
		r.log.Warn("remember language failed", zap.Error(err))
	}

	_, loggedIn := UserID(c)
	data["Lang"] = lang
	data["Flashes"] = flashes
	data["LoggedIn"] = loggedIn
	if _, ok := data["Page"]; !ok {
		data["Page"] = "index"
	}
	c.HTML(status, name, data)
}

// Redirect queues a localized notice and redirects with 302.
func (r *Responder) Redirect(c *gin.Context, location, key, lang string) {
	if key != "" {
		if err := r.sessions.AddFlash(c.Writer, c.Request, i18n.NewFlash(key, lang)); err != nil {
			r.log.Warn("add flash failed", zap.String("key", key), zap.Error(err))
		}
	}
	c.Redirect(http.StatusFound, location)
}

// Error renders the shared error page and aborts the chain.
func (r *Responder) Error(c *gin.Context, status int) {
	c.HTML(status, ErrorTemplate, gin.H{
		"Lang":     Lang(c),
		"Page":     "index",
		"Status":   status,
		"Text":     http.StatusText(status),
		"LoggedIn": false,
	})
	c.Abort()
}

// UserID is the authenticated user for the request, set by the session
// middleware.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// Lang is the validated language of the request path, or English.
func Lang(c *gin.Context) string {
	if v, ok := c.Get(ContextLangKey); ok {
		if lang, ok := v.(string); ok {
			return lang
		}
	}
	return i18n.DefaultLang
}
