package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/veris-dev/veris-lrs/internal/api"
	"github.com/veris-dev/veris-lrs/internal/auth"
	"github.com/veris-dev/veris-lrs/internal/identity"
	"github.com/veris-dev/veris-lrs/internal/lrs"
	"github.com/veris-dev/veris-lrs/internal/server"
	"github.com/veris-dev/veris-lrs/internal/store"
	"github.com/veris-dev/veris-lrs/pkg/schema"
)

const version = "1.1.0"

func main() {
	logger := newLogger()
	defer logger.Sync()
	logger.Info("starting LRS daemon", zap.String("version", version))

	// 1. Configuration
	httpPort := getenv("LRS_HTTP_PORT", "4000")
	mongoURL := os.Getenv("LRS_MONGO_URL")
	mongoDB := getenv("LRS_MONGO_DB", "lrs")
	baseColl := getenv("LRS_XAPI_COLLECTION", "xapi")
	dataDir := getenv("LRS_DATA_DIR", "./data")
	secret := os.Getenv("LRS_JWT_SECRET")
	if secret == "" {
		logger.Fatal("LRS_JWT_SECRET must be set")
	}

	allowPublicRegister := os.Getenv("LRS_ALLOW_PUBLIC_REGISTER") == "true"
	legacySkip := os.Getenv("LRS_LEGACY_SKIP_AS_LIMIT") == "true"
	if legacySkip {
		logger.Warn("legacy pagination enabled: a caller-supplied skip overwrites the query limit")
	}

	maxBodyMB, _ := strconv.ParseInt(getenv("LRS_MAX_BODY_MB", "500"), 10, 64)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Store: MongoDB when configured, embedded engine otherwise
	var (
		recordStore store.Store
		userStore   identity.Store
	)
	if mongoURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		mongoStore, err := store.ConnectMongo(connectCtx, mongoURL, mongoDB, logger)
		cancel()
		if err != nil {
			logger.Fatal("mongodb connection failed", zap.Error(err))
		}
		recordStore = mongoStore
		userStore = identity.NewMongoUsers(mongoStore.Database())

		// One-shot import of embedded data, for promoting a local
		// deployment onto the real backend.
		if importDir := os.Getenv("LRS_IMPORT_DIR"); importDir != "" {
			if err := importFromDir(ctx, importDir, mongoStore, logger); err != nil {
				logger.Fatal("import failed", zap.String("dir", importDir), zap.Error(err))
			}
		}
	} else {
		logger.Warn("no LRS_MONGO_URL configured, using the embedded engine", zap.String("data_dir", dataDir))
		p, err := store.NewPersistence(dataDir, logger)
		if err != nil {
			logger.Fatal("failed to initialize persistence", zap.Error(err))
		}
		initial, err := p.LoadAll()
		if err != nil {
			logger.Warn("could not load existing data", zap.Error(err))
		}
		recordStore = store.NewMemStore(initial, p)
		userStore = identity.NewMemUsers()
		logger.Info("embedded engine started", zap.Int("partitions", len(initial)))
	}

	// 3. Services
	users := identity.NewService(userStore, secret, logger)
	authn := auth.NewAuthenticator(secret, 24*time.Hour)
	records := lrs.New(recordStore, lrs.Options{
		BaseCollection:    baseColl,
		LegacySkipAsLimit: legacySkip,
	}, logger)

	seedAdmin(ctx, users, logger)

	// 4. HTTP server
	gin.SetMode(gin.ReleaseMode)
	h := &api.Handler{
		Records: records,
		Users:   users,
		Auth:    authn,
		Log:     logger,
		Version: version,
	}
	router := server.New(h, authn, server.Config{
		AllowPublicRegister: allowPublicRegister,
		MaxBodyBytes:        maxBodyMB << 20,
	}, logger)

	srv := &http.Server{Addr: ":" + httpPort, Handler: router}
	go func() {
		logger.Info("HTTP server listening", zap.String("port", httpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 5. Graceful shutdown
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := recordStore.Close(shutdownCtx); err != nil {
		logger.Warn("store close failed", zap.Error(err))
	}
	logger.Info("exiting")
}

func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if os.Getenv("LRS_DEV") == "true" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// seedAdmin creates the bootstrap admin account when configured and not
// already present.
func seedAdmin(ctx context.Context, users *identity.Service, logger *zap.Logger) {
	email := os.Getenv("LRS_ADMIN_EMAIL")
	password := os.Getenv("LRS_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	_, err := users.Register(ctx, schema.Registration{
		Email:       email,
		DisplayName: "Administrator",
		Password:    password,
		Role:        auth.RoleAdmin,
	}, true)
	switch {
	case err == nil:
		logger.Info("admin account seeded", zap.String("email", email))
	case errors.Is(err, identity.ErrDuplicateEmail):
		logger.Debug("admin account already present", zap.String("email", email))
	default:
		logger.Warn("admin seeding failed", zap.Error(err))
	}
}

// importFromDir loads an embedded data directory and copies every
// partition into the connected backend.
func importFromDir(ctx context.Context, dir string, dst store.Store, logger *zap.Logger) error {
	p, err := store.NewPersistence(dir, logger)
	if err != nil {
		return err
	}
	data, err := p.LoadAll()
	if err != nil {
		return err
	}

	src := store.NewMemStore(data, nil)
	if err := store.Migrate(ctx, src, dst); err != nil {
		return err
	}
	logger.Info("imported embedded data", zap.String("dir", dir), zap.Int("partitions", len(data)))
	return nil
}
