package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/wisdom/internal/queue"
	mid "github.com/OFFIS-RIT/wisdom/internal/server/middleware"
	"github.com/OFFIS-RIT/wisdom/internal/storage"
	"github.com/OFFIS-RIT/wisdom/internal/util"
	"github.com/OFFIS-RIT/wisdom/pkg/leaselock"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
	"github.com/OFFIS-RIT/wisdom/pkg/store"
	"github.com/OFFIS-RIT/wisdom/pkg/store/memory"
	pgxstore "github.com/OFFIS-RIT/wisdom/pkg/store/pgx"
	redisstore "github.com/OFFIS-RIT/wisdom/pkg/store/redis"
	"github.com/OFFIS-RIT/wisdom/pkg/summary"

	"github.com/MicahParks/keyfunc/v3"
	goredis "github.com/go-redis/redis/v8"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewEcho wires validation, middleware and routes around app.
func NewEcho(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("32M"))

	RegisterRoutes(e)
	return e
}

// NewSnapshotStore selects the session snapshot backend from
// SNAPSHOT_BACKEND. The returned cleanup closes its connections.
func NewSnapshotStore(ctx context.Context) (store.SnapshotStore, func(), error) {
	switch backend := util.GetEnvString("SNAPSHOT_BACKEND", "memory"); backend {
	case "postgres":
		databaseURL := util.GetEnv("DATABASE_URL")
		err := util.RetryErrWithContext(ctx, 5, time.Second, func(context.Context) error {
			return pgxstore.Migrate(databaseURL)
		})
		if err != nil {
			return nil, nil, err
		}
		conn, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := pgxstore.NewPgxSnapshotStore(conn, leaselock.Options{
			TTL: time.Duration(util.GetEnvInt("SESSION_LOCK_TTL_SECONDS", 60)) * time.Second,
		})
		return s, conn.Close, nil
	case "redis":
		cfg := redisstore.RedisConfig{
			Addr:     util.GetEnvString("REDIS_ADDR", "localhost:6379"),
			Password: util.GetEnv("REDIS_PASSWORD"),
			DB:       util.GetEnvInt("REDIS_DB", 0),
		}
		// wait for redis to accept connections
		client, err := util.RetryWithContext(ctx, 5, time.Second, func(ctx context.Context) (*goredis.Client, error) {
			return redisstore.NewClient(ctx, cfg)
		})
		if err != nil {
			return nil, nil, err
		}
		ttl := time.Duration(util.GetEnvInt("SNAPSHOT_TTL_SECONDS", 86400)) * time.Second
		s := redisstore.NewRedisSnapshotStore(client, redisstore.WithTTL(ttl))
		return s, func() { _ = client.Close() }, nil
	default:
		if backend != "memory" {
			logger.Warn("Unknown snapshot backend, using memory", "backend", backend)
		}
		return memory.NewMemorySnapshotStore(), func() {}, nil
	}
}

// DecayFactorFromEnv reads DECAY_FACTOR; nil leaves the engine default.
func DecayFactorFromEnv() *float64 {
	if util.GetEnv("DECAY_FACTOR") == "" {
		return nil
	}
	decay := util.GetEnvNumeric("DECAY_FACTOR", 0.6)
	return &decay
}

// SummaryOptionsFromEnv reads the projection limits.
func SummaryOptionsFromEnv() summary.Options {
	defaults := summary.DefaultOptions()
	return summary.Options{
		MaxPerCategory:   util.GetEnvInt("SUMMARY_MAX_PER_CATEGORY", defaults.MaxPerCategory),
		MaxRelationships: util.GetEnvInt("SUMMARY_MAX_RELATIONSHIPS", defaults.MaxRelationships),
	}
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, closeStore, err := NewSnapshotStore(ctx)
	if err != nil {
		logger.Fatal("Failed to set up snapshot store", "err", err)
	}
	defer closeStore()

	app := &mid.App{
		Store:          snapshots,
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		MasterUserID:   util.GetEnv("MASTER_USER_ID"),
		MasterUserRole: util.GetEnv("MASTER_USER_ROLE"),
		DecayFactor:    DecayFactorFromEnv(),
		Summary:        SummaryOptionsFromEnv(),
	}

	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefaultCtx(ctx, []string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.KeyFunc = k.Keyfunc
	}

	if util.GetEnv("RABBITMQ_HOST") != "" {
		que := queue.Init()
		defer que.Close()
		ch, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, queue.Queues); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}
		app.Queue = ch
	}

	if util.GetEnv("AWS_BUCKET") != "" {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		app.S3 = client
	}

	e := NewEcho(app)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
