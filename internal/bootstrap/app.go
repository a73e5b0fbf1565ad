package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"agrovision/internal/app"
	"agrovision/internal/config"
	"agrovision/internal/logger"
	"agrovision/internal/platform/database"
	rabbitmqClient "agrovision/internal/platform/rabbitmq"
	redisClient "agrovision/internal/platform/redis"
	"agrovision/internal/repository"
	"agrovision/internal/session"
	"agrovision/internal/storage"
	"agrovision/internal/vision"
	"agrovision/internal/worker"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Sessions     *session.Manager
	Storage      storage.Storage
	Classifier   app.Predictor
	Orphans      app.OrphanPublisher
	OrphanWorker *worker.OrphanCleanupWorker

	model     *vision.ONNXModel
	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	a := &App{Config: cfg, Log: log, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg, a.Log)
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		return err
	}

	if err := a.initSessions(ctx); err != nil {
		return err
	}
	if err := a.initStorage(ctx); err != nil {
		return err
	}
	if err := a.initClassifier(); err != nil {
		return err
	}
	return a.initOrphanCleanup(ctx)
}

func (a *App) initSessions(ctx context.Context) error {
	cfg := a.Config
	ttl := time.Duration(cfg.Session.TTLMinutes) * time.Minute

	var store session.Store
	switch cfg.Session.Backend {
	case "redis":
		client, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = client
		store = session.NewRedisStore(client, ttl)
	default:
		store = session.NewMemoryStore(ttl)
	}

	a.Sessions = session.NewManager(store, session.ManagerOptions{
		CookieName: cfg.Auth.CookieName,
		Secret:     []byte(cfg.Auth.SessionSecret),
		MaxAge:     int(ttl.Seconds()),
		Secure:     cfg.Auth.SecureCookie,
	})
	a.Log.Info("session store ready", zap.String("backend", cfg.Session.Backend))
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case "s3":
		s3Store, err := storage.NewS3(ctx, storage.S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			AccessKeySecret: cfg.S3.AccessKeySecret,
			PublicURL:       cfg.S3.PublicURL,
		})
		if err != nil {
			return err
		}
		a.Storage = s3Store
	default:
		a.Storage = storage.NewLocal(cfg.Storage.Root, cfg.Storage.PublicPrefix)
	}
	a.Log.Info("storage ready", zap.String("backend", cfg.Storage.Backend))
	return nil
}

func (a *App) initClassifier() error {
	cfg := a.Config.Vision

	labels := vision.DefaultLabels
	if cfg.LabelsPath != "" {
		loaded, err := vision.LoadLabels(cfg.LabelsPath)
		if err != nil {
			return err
		}
		labels = loaded
	}

	m, err := vision.LoadONNXModel(cfg.ModelPath, cfg.ONNXSharedLibPath)
	if err != nil {
		return fmt.Errorf("load model %s failed: %w", cfg.ModelPath, err)
	}
	a.model = m

	classifier, err := vision.NewClassifier(m, labels, float32(cfg.ConfidenceThreshold))
	if err != nil {
		return err
	}
	a.Classifier = classifier
	a.Log.Info("classifier loaded",
		zap.String("model", cfg.ModelPath),
		zap.Int("labels", len(labels)),
		zap.Float64("threshold", cfg.ConfidenceThreshold))
	return nil
}

func (a *App) initOrphanCleanup(ctx context.Context) error {
	cfg := a.Config.RabbitMQ
	if !cfg.Enabled {
		a.Orphans = logOnlyOrphans{log: a.Log}
		return nil
	}

	conn, err := rabbitmqClient.New(ctx, cfg.URL, cfg.OrphanQueue)
	if err != nil {
		return err
	}
	a.MQConn = conn
	a.Orphans = rabbitmqClient.NewOrphanPublisher(conn, cfg.OrphanQueue)

	images := repository.NewImageRepository(a.DB)
	a.OrphanWorker = worker.NewOrphanCleanupWorker(conn, images, a.Storage, cfg.OrphanQueue, a.Log)
	if err := a.OrphanWorker.Start(ctx); err != nil {
		return fmt.Errorf("start orphan cleanup worker failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.OrphanWorker != nil {
		a.OrphanWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.model != nil {
		if err := a.model.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return closeErr
}

// logOnlyOrphans records orphaned uploads when no queue is configured.
type logOnlyOrphans struct {
	log *zap.Logger
}

func (o logOnlyOrphans) PublishOrphan(_ context.Context, filename string) error {
	o.log.Warn("orphaned upload left in storage", zap.String("filename", filename))
	return nil
}
