package http

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"agrovision/internal/bootstrap"
	"agrovision/internal/config"
	"agrovision/internal/i18n"
	"agrovision/internal/model"
	"agrovision/internal/platform/database"
	"agrovision/internal/session"
	"agrovision/internal/storage"
	"agrovision/internal/vision"
	"agrovision/internal/vision/visiontest"
)

const predictedIndex = 20 // Potato___Early_blight

type testServer struct {
	*httptest.Server
	db    *gorm.DB
	root  string
	model *visiontest.StaticModel
}

func newTestServer(t *testing.T, maxUploadBytes int64) *testServer {
	t.Helper()

	db, err := database.NewSQLite(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	root := filepath.Join(t.TempDir(), "uploads")
	cfg := &config.Config{
		App: config.AppConfig{
			Name:           "agrovision",
			Env:            "test",
			GinMode:        gin.TestMode,
			MaxUploadBytes: maxUploadBytes,
		},
		Auth:    config.AuthConfig{BcryptCost: bcrypt.MinCost},
		Session: config.SessionConfig{Backend: "memory"},
		Storage: config.StorageConfig{Backend: "local", Root: root, PublicPrefix: "/static/uploads"},
	}

	fake := &visiontest.StaticModel{Probs: visiontest.OneHot(len(vision.DefaultLabels), predictedIndex, 0.92)}
	classifier, err := vision.NewClassifier(fake, vision.DefaultLabels, vision.DefaultConfidenceThreshold)
	require.NoError(t, err)

	app := &bootstrap.App{
		Config: cfg,
		Log:    zap.NewNop(),
		DB:     db,
		Sessions: session.NewManager(session.NewMemoryStore(time.Hour), session.ManagerOptions{
			Secret: []byte("test-secret"),
		}),
		Storage:    storage.NewLocal(root, "/static/uploads"),
		Classifier: classifier,
		StartedAt:  time.Now(),
	}

	router, err := NewRouter(app)
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, db: db, root: root, model: fake}
}

func (s *testServer) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *testServer) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type page struct {
	status   int
	location string
	body     string
}

func do(t *testing.T, client *http.Client, req *http.Request) page {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return page{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (s *testServer) get(t *testing.T, client *http.Client, path string) page {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	return do(t, client, req)
}

func (s *testServer) post(t *testing.T, client *http.Client, path string, form url.Values) page {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, client, req)
}

// upload posts a multipart form. A nil content omits the file part.
func (s *testServer) upload(t *testing.T, client *http.Client, lang, filename string, content []byte) page {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if content != nil {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/"+lang+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(t, client, req)
}

func (s *testServer) signupAndLogin(t *testing.T, client *http.Client, email string) {
	t.Helper()
	creds := url.Values{"email": {email}, "password": {"pw123"}}

	res := s.post(t, client, "/en/signup", creds)
	require.Equal(t, http.StatusFound, res.status)
	require.Equal(t, "/en/login", res.location)

	res = s.post(t, client, "/en/login", creds)
	require.Equal(t, http.StatusFound, res.status)
	require.Equal(t, "/en/upload", res.location)
}

func leafPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 150, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func notice(key, lang string) string {
	return template.HTMLEscapeString(i18n.Message(key, lang))
}

func TestRouter_UploadFlow(t *testing.T) {
	s := newTestServer(t, 16<<20)
	alice := s.browser(t)
	s.signupAndLogin(t, alice, "a@x.com")

	res := s.upload(t, alice, "en", "leaf.jpg", leafPNG(t))
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, vision.DefaultLabels[predictedIndex])
	assert.Contains(t, res.body, "92.0%")
	assert.Contains(t, res.body, notice(i18n.KeyUploadSuccess, "en"))

	stored := s.storedFiles(t)
	require.Len(t, stored, 1)
	name := stored[0]
	assert.True(t, strings.HasSuffix(name, "_leaf.jpg"))
	assert.Contains(t, res.body, "/display/"+name)
	assert.Equal(t, 1, s.model.Calls())

	res = s.get(t, alice, "/en/my_images")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, name)

	bob := s.browser(t)
	s.signupAndLogin(t, bob, "bob@x.com")
	res = s.get(t, bob, "/en/my_images")
	require.Equal(t, http.StatusOK, res.status)
	assert.NotContains(t, res.body, name)
}

func TestRouter_LowConfidenceShowsLocalizedSentinel(t *testing.T) {
	s := newTestServer(t, 16<<20)
	s.model.Probs = visiontest.OneHot(len(vision.DefaultLabels), predictedIndex, 0.35)
	client := s.browser(t)
	s.signupAndLogin(t, client, "a@x.com")

	res := s.upload(t, client, "az", "leaf.png", leafPNG(t))
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, notice(i18n.KeyUnrecognized, "az"))
	assert.NotContains(t, res.body, vision.DefaultLabels[predictedIndex])
}

func TestRouter_UploadRequiresLogin(t *testing.T) {
	s := newTestServer(t, 16<<20)
	client := s.browser(t)

	res := s.upload(t, client, "en", "leaf.jpg", leafPNG(t))
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/en/login", res.location)
	assert.Empty(t, s.storedFiles(t))
	assert.Zero(t, s.model.Calls())

	res = s.get(t, client, "/en/login")
	assert.Contains(t, res.body, notice(i18n.KeyLoginRequired, "en"))

	res = s.get(t, client, "/display/anything.png")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/en/login", res.location)

	res = s.get(t, client, "/az/my_images")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/az/login", res.location)
}

func TestRouter_UploadRejections(t *testing.T) {
	s := newTestServer(t, 16<<20)
	client := s.browser(t)
	s.signupAndLogin(t, client, "a@x.com")

	cases := []struct {
		name     string
		filename string
		content  []byte
		key      string
	}{
		{name: "missing part", key: i18n.KeyNoImage},
		{name: "empty filename", filename: "", content: []byte{}, key: i18n.KeyNoFile},
		{name: "text file", filename: "notes.txt", content: []byte("hello"), key: i18n.KeyWrongFormat},
		{name: "executable", filename: "setup.exe", content: []byte("MZ"), key: i18n.KeyWrongFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := s.upload(t, client, "en", tc.filename, tc.content)
			assert.Equal(t, http.StatusFound, res.status)
			assert.Equal(t, "/en/upload", res.location)

			res = s.get(t, client, "/en/upload")
			assert.Contains(t, res.body, notice(tc.key, "en"))
		})
	}

	assert.Empty(t, s.storedFiles(t))
	assert.Zero(t, s.model.Calls())
}

func TestRouter_PredictionErrorKeepsUpload(t *testing.T) {
	s := newTestServer(t, 16<<20)
	client := s.browser(t)
	s.signupAndLogin(t, client, "a@x.com")

	res := s.upload(t, client, "en", "leaf.gif", []byte("not really a gif"))
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/en/upload", res.location)

	res = s.get(t, client, "/en/upload")
	assert.Contains(t, res.body, notice(i18n.KeyPredictionError, "en"))

	stored := s.storedFiles(t)
	require.Len(t, stored, 1)
	res = s.get(t, client, "/en/my_images")
	assert.Contains(t, res.body, stored[0])
}

func TestRouter_DeleteAndDisplayOwnership(t *testing.T) {
	s := newTestServer(t, 16<<20)
	alice := s.browser(t)
	s.signupAndLogin(t, alice, "alice@x.com")
	bob := s.browser(t)
	s.signupAndLogin(t, bob, "bob@x.com")

	res := s.upload(t, alice, "en", "leaf.jpg", leafPNG(t))
	require.Equal(t, http.StatusOK, res.status)
	name := s.storedFiles(t)[0]

	res = s.get(t, bob, "/display/"+name)
	assert.Equal(t, http.StatusForbidden, res.status)
	res = s.post(t, bob, "/en/delete/"+name, nil)
	assert.Equal(t, http.StatusForbidden, res.status)
	res = s.post(t, alice, "/en/delete/unknown.png", nil)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, []string{name}, s.storedFiles(t))

	res = s.get(t, alice, "/display/"+name)
	assert.Equal(t, http.StatusMovedPermanently, res.status)
	assert.Equal(t, "/static/uploads/"+name, res.location)
	res = s.get(t, alice, res.location)
	assert.Equal(t, http.StatusOK, res.status)

	res = s.post(t, alice, "/en/delete/"+name, nil)
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/en/my_images", res.location)

	res = s.get(t, alice, "/en/my_images")
	assert.Contains(t, res.body, notice(i18n.KeyImageDeleted, "en"))
	assert.NotContains(t, res.body, name)
	assert.Empty(t, s.storedFiles(t))
}

func TestRouter_AuthNotices(t *testing.T) {
	s := newTestServer(t, 16<<20)
	client := s.browser(t)

	res := s.post(t, client, "/az/signup", url.Values{"email": {""}, "password": {"pw"}})
	assert.Equal(t, "/az/signup", res.location)
	res = s.get(t, client, "/az/signup")
	assert.Contains(t, res.body, notice(i18n.KeyMissingFields, "az"))

	s.signupAndLogin(t, client, "a@x.com")
	res = s.post(t, client, "/en/signup", url.Values{"email": {"A@x.com"}, "password": {"pw123"}})
	assert.Equal(t, "/en/signup", res.location)
	res = s.get(t, client, "/en/signup")
	assert.Contains(t, res.body, notice(i18n.KeyUserExists, "en"))

	other := s.browser(t)
	res = s.post(t, other, "/en/login", url.Values{"email": {"nobody@x.com"}, "password": {"pw123"}})
	assert.Equal(t, "/en/login", res.location)
	res = s.get(t, other, "/en/login")
	assert.Contains(t, res.body, notice(i18n.KeyEmailNotFound, "en"))

	res = s.post(t, other, "/en/login", url.Values{"email": {"a@x.com"}, "password": {"wrong"}})
	assert.Equal(t, "/en/login", res.location)
	res = s.get(t, other, "/en/login")
	assert.Contains(t, res.body, notice(i18n.KeyWrongPassword, "en"))

	res = s.get(t, other, "/en/my_images")
	assert.Equal(t, "/en/login", res.location, "failed logins create no session")
}

func TestRouter_Logout(t *testing.T) {
	s := newTestServer(t, 16<<20)
	client := s.browser(t)
	s.signupAndLogin(t, client, "a@x.com")

	res := s.get(t, client, "/en/my_images")
	require.Equal(t, http.StatusOK, res.status)

	res = s.get(t, client, "/logout")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/", res.location)

	res = s.get(t, client, "/en/my_images")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/en/login", res.location)

	res = s.get(t, client, "/logout")
	assert.Equal(t, http.StatusFound, res.status, "logout is idempotent")
}

func TestRouter_SessionOfDeletedUserIsAnonymous(t *testing.T) {
	s := newTestServer(t, 16<<20)
	client := s.browser(t)
	s.signupAndLogin(t, client, "a@x.com")

	res := s.get(t, client, "/en/my_images")
	require.Equal(t, http.StatusOK, res.status)

	require.NoError(t, s.db.Where("email = ?", "a@x.com").Delete(&model.User{}).Error)

	res = s.upload(t, client, "en", "leaf.jpg", leafPNG(t))
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/en/login", res.location)
	assert.Empty(t, s.storedFiles(t))
}

func TestRouter_Pages(t *testing.T) {
	s := newTestServer(t, 16<<20)
	client := s.browser(t)

	res := s.get(t, client, "/")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/az/", res.location)

	for _, path := range []string{"/az/", "/en/", "/en/about", "/az/about", "/en/index"} {
		res = s.get(t, client, path)
		assert.Equal(t, http.StatusOK, res.status, path)
	}

	res = s.get(t, client, "/en/about")
	assert.Contains(t, res.body, `lang="en"`)

	res = s.get(t, client, "/en/no_such_page")
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestRouter_InvalidLanguage(t *testing.T) {
	s := newTestServer(t, 16<<20)
	client := s.browser(t)
	s.signupAndLogin(t, client, "a@x.com")

	for _, path := range []string{"/fr/", "/fr/about", "/xx/login", "/de/upload", "/ru/my_images"} {
		res := s.get(t, client, path)
		assert.Equal(t, http.StatusNotFound, res.status, path)
	}

	res := s.upload(t, client, "fr", "leaf.jpg", leafPNG(t))
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Empty(t, s.storedFiles(t))
}

func TestRouter_OversizedUpload(t *testing.T) {
	s := newTestServer(t, 1024)
	client := s.browser(t)

	res := s.upload(t, client, "en", "leaf.jpg", bytes.Repeat([]byte{0xff}, 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.status)
	assert.Empty(t, s.storedFiles(t))
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, 16<<20)

	res := s.get(t, s.browser(t), "/healthz")
	require.Equal(t, http.StatusOK, res.status)

	var body struct {
		App          string `json:"app"`
		Dependencies map[string]struct {
			OK      bool   `json:"ok"`
			Message string `json:"message"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.body), &body))
	assert.Equal(t, "agrovision", body.App)
	assert.True(t, body.Dependencies["database"].OK)
	assert.Equal(t, "disabled", body.Dependencies["redis"].Message)
	assert.Equal(t, "disabled", body.Dependencies["rabbitmq"].Message)
	assert.True(t, body.Dependencies["model"].OK)
}
