package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/Tom8810/janso/config"
	"github.com/Tom8810/janso/internal/api"
	"github.com/Tom8810/janso/internal/auth"
	"github.com/Tom8810/janso/internal/db"
	"github.com/Tom8810/janso/internal/mw"
	"github.com/Tom8810/janso/internal/notification"
	"github.com/Tom8810/janso/internal/parlor"
	"github.com/Tom8810/janso/internal/seed"
	"github.com/Tom8810/janso/internal/store"
)

func main() {
	configPath := pflag.String("config", "", "path to the YAML config (default $CONFIG_PATH or ./config/config.yaml)")
	seedPath := pflag.String("seed", "", "YAML file of demo parlors to upsert before serving")
	seedOnly := pflag.Bool("seed-only", false, "exit after seeding")
	pflag.Parse()

	config.LoadDotEnv()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		logrus.Fatalf("failed to load configuration from %s: %v", path, err)
	}
	logger := setupLogger(cfg.Log)
	logger.WithFields(logrus.Fields{
		"path":        path,
		"environment": cfg.Environment,
	}).Info("configuration loaded")

	gormDB, err := db.Init(cfg)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parlors := parlor.NewService(store.NewGormStore(gormDB))

	revoker, closeRevoker := newRevoker(ctx, cfg.Auth.RedisURL, logger)
	defer closeRevoker()
	authSvc := auth.NewService(gormDB, parlors, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()), revoker)

	if *seedPath != "" {
		f, err := seed.Load(*seedPath)
		if err != nil {
			logger.Fatalf("failed to load seed file: %v", err)
		}
		if err := seed.Apply(ctx, f, parlors, authSvc); err != nil {
			logger.Fatalf("seeding failed: %v", err)
		}
		logger.WithField("parlors", len(f.Parlors)).Info("seeding completed")
		if *seedOnly {
			return
		}
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled {
		if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
			logger.Fatal("push is enabled but VAPID keys are not configured")
		}
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		parlors.SetNotifier(pool)
		logger.WithField("workers", cfg.WorkerPool.Size).Info("push notifications enabled")
	}

	handler := api.NewHandler(api.Deps{
		Parlors:         parlors,
		Auth:            authSvc,
		DB:              gormDB,
		Cache:           mw.NewResponseCache(cfg.Server.CacheTTL()),
		WebPush:         webpushOptions,
		DefaultParlorID: cfg.Parlor.DefaultID,
		EnforceOwner:    cfg.Auth.EnforceOwner,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	logger.Info("server gracefully stopped")
}

func setupLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.StandardLogger()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// newRevoker uses Redis when configured so logouts are shared across
// instances, else an in-process blacklist.
func newRevoker(ctx context.Context, redisURL string, logger *logrus.Logger) (auth.Revoker, func()) {
	if redisURL == "" {
		logger.Info("REDIS_URL not set; token blacklist is kept in memory")
		return auth.NewMemoryRevoker(), func() {}
	}
	r, err := auth.NewRedisRevoker(ctx, redisURL)
	if err != nil {
		logger.Fatalf("failed to connect token blacklist: %v", err)
	}
	logger.Info("token blacklist connected to redis")
	return r, func() {
		if err := r.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis client")
		}
	}
}
