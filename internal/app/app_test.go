package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"agrovision/internal/platform/database"
	"agrovision/internal/repository"
	"agrovision/internal/storage"
	"agrovision/internal/vision"
	"agrovision/internal/vision/visiontest"
)

type recordingOrphans struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingOrphans) PublishOrphan(_ context.Context, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, filename)
	return nil
}

type fixture struct {
	db      *gorm.DB
	root    string
	store   *storage.Local
	model   *visiontest.StaticModel
	orphans *recordingOrphans
	auth    *AuthService
	images  *ImageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewSQLite(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	root := filepath.Join(t.TempDir(), "uploads")
	store := storage.NewLocal(root, "/static/uploads")
	model := &visiontest.StaticModel{Probs: visiontest.OneHot(len(vision.DefaultLabels), 0, 0.9)}
	classifier, err := vision.NewClassifier(model, vision.DefaultLabels, vision.DefaultConfidenceThreshold)
	require.NoError(t, err)
	orphans := &recordingOrphans{}

	return &fixture{
		db:      db,
		root:    root,
		store:   store,
		model:   model,
		orphans: orphans,
		auth:    NewAuthService(repository.NewUserRepository(db), bcrypt.MinCost),
		images:  NewImageService(repository.NewImageRepository(db), store, classifier, orphans, nil),
	}
}

func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.root)
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

func leafPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{G: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
