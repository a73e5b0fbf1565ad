package session

import (
	"encoding/gob"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"agrovision/internal/i18n"
)

const (
	tokenKey = "token"
	langKey  = "lang"
)

func init() {
	gob.Register(i18n.Flash{})
}

type ManagerOptions struct {
	CookieName string
	Secret     []byte
	MaxAge     int
	Secure     bool
}

// Manager ties the signed browser cookie (token, language, flash notices)
// to the server-side Store.
type Manager struct {
	cookies *sessions.CookieStore
	store   Store
	name    string
}

func NewManager(store Store, opts ManagerOptions) *Manager {
	cookies := sessions.NewCookieStore(opts.Secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	name := opts.CookieName
	if name == "" {
		name = "agrovision_session"
	}
	return &Manager{
		cookies: cookies,
		store:   store,
		name:    name,
	}
}

// cookie never fails: a cookie that no longer decodes (rotated secret,
// tampering) yields a fresh session, cached for the rest of the request.
func (m *Manager) cookie(r *http.Request) *sessions.Session {
	sess, _ := m.cookies.Get(r, m.name)
	return sess
}

// CurrentUser resolves the user bound to the request, if any.
func (m *Manager) CurrentUser(r *http.Request) (uint, bool, error) {
	token, _ := m.cookie(r).Values[tokenKey].(string)
	if token == "" {
		return 0, false, nil
	}
	return m.store.Lookup(r.Context(), token)
}

// Login issues a new server-side session for userID, replacing any
// previous one carried by the cookie.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID uint) error {
	sess := m.cookie(r)
	if old, _ := sess.Values[tokenKey].(string); old != "" {
		if err := m.store.Destroy(r.Context(), old); err != nil {
			return err
		}
	}

	token, err := m.store.Create(r.Context(), userID)
	if err != nil {
		return err
	}
	sess.Values[tokenKey] = token
	return m.save(w, r, sess)
}

func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := m.cookie(r)
	if token, _ := sess.Values[tokenKey].(string); token != "" {
		if err := m.store.Destroy(r.Context(), token); err != nil {
			return err
		}
	}
	delete(sess.Values, tokenKey)
	return m.save(w, r, sess)
}

func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, flash i18n.Flash) error {
	sess := m.cookie(r)
	sess.AddFlash(flash)
	return m.save(w, r, sess)
}

// Flashes pops every pending notice.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) ([]i18n.Flash, error) {
	sess := m.cookie(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil, nil
	}

	flashes := make([]i18n.Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(i18n.Flash); ok {
			flashes = append(flashes, f)
		}
	}
	return flashes, m.save(w, r, sess)
}

// Lang is the last site language the browser used, or def.
func (m *Manager) Lang(r *http.Request, def string) string {
	if lang, _ := m.cookie(r).Values[langKey].(string); i18n.Supported(lang) {
		return lang
	}
	return def
}

func (m *Manager) SetLang(w http.ResponseWriter, r *http.Request, lang string) error {
	sess := m.cookie(r)
	if current, _ := sess.Values[langKey].(string); current == lang {
		return nil
	}
	sess.Values[langKey] = lang
	return m.save(w, r, sess)
}

func (m *Manager) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session) error {
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session cookie failed: %w", err)
	}
	return nil
}
