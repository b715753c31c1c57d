package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/activity"
	"github.com/Luffy852/dnd5e-character-manager/internal/auth"
	"github.com/Luffy852/dnd5e-character-manager/internal/character"
	"github.com/Luffy852/dnd5e-character-manager/internal/config"
	"github.com/Luffy852/dnd5e-character-manager/internal/server"
	"github.com/Luffy852/dnd5e-character-manager/internal/store"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return store.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	}
}

func main() {
	dotenv := config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if dotenv {
		logger.Info("loaded .env file")
	}

	ctx := context.Background()

	// ── Relational store ─────────────────────────────────────
	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer db.Close()

	// ── Sessions ─────────────────────────────────────────────
	var sessions auth.Sessions
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		sessions = auth.NewRedisSessions(rdb, cfg.SessionTTL)
	} else {
		logger.Warn("REDIS_ADDR not set, keeping sessions in memory")
		sessions = auth.NewMemorySessions(cfg.SessionTTL)
	}

	// ── Activity log ─────────────────────────────────────────
	var activityStore activity.Store
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal("mongo connect", zap.Error(err))
		}
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		if err := mongoClient.Ping(ctx, nil); err != nil {
			logger.Fatal("mongo ping", zap.Error(err))
		}
		mongoActivity := store.NewMongoActivity(mongoClient.Database(cfg.MongoDB))
		if err := mongoActivity.EnsureIndexes(ctx); err != nil {
			logger.Fatal("mongo indexes", zap.Error(err))
		}
		activityStore = mongoActivity
	} else {
		logger.Warn("MONGO_URI not set, keeping activity in memory")
		activityStore = &activity.Memory{}
	}

	// ── Sheet exports ────────────────────────────────────────
	var sheets character.SheetStore
	if cfg.MinioEndpoint != "" {
		minioSheets, err := store.NewMinioSheets(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			logger.Fatal("minio connect", zap.Error(err))
		}
		sheets = minioSheets
	} else {
		logger.Info("MINIO_ENDPOINT not set, sheet export disabled")
	}

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr: cfg.HTTPAddress(),
		Handler: server.New(server.Deps{
			Store:       db,
			Sessions:    sessions,
			Activity:    activityStore,
			Sheets:      sheets,
			Logger:      logger,
			CORSOrigins: cfg.CORSOrigins,
			SessionTTL:  cfg.SessionTTL,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
