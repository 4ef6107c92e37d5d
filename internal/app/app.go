package app

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pagelift/pagelift-backend/internal/data/db"
	"github.com/pagelift/pagelift-backend/internal/data/repos"
	pagerepos "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	pagehttp "github.com/pagelift/pagelift-backend/internal/http"
	"github.com/pagelift/pagelift-backend/internal/http/handlers"
	"github.com/pagelift/pagelift-backend/internal/http/middleware"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
	"github.com/pagelift/pagelift-backend/internal/platform/tracing"
	"github.com/pagelift/pagelift-backend/internal/services"
)

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Server *pagehttp.Server
	Cfg    Config

	shutdownTracing func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	shutdownTracing, err := tracing.Setup(ctx, log, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	dbService, err := db.New(log, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	gdb := dbService.DB()

	// Repos
	txRunner := repos.NewGormTxRunner(gdb)
	pageRepo := pagerepos.NewPageRepo(gdb, log)
	versionRepo := pagerepos.NewPageVersionRepo(gdb, log, cfg.SnapshotCompressThreshold)
	sectionRepo := pagerepos.NewPageSectionRepo(gdb, log)
	recordRepo := pagerepos.NewPageRecordRepo(gdb, log)
	editorRepo := pagerepos.NewEditorRepo(gdb, log)

	// Render cache; without a redis address rendering just rebuilds
	// skeletons per request.
	var cache services.RenderCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		cache = services.NewRedisRenderCache(log, rdb, cfg.CacheTTL)
	} else {
		log.Warn("no redis address configured, render cache disabled")
		cache = services.NewNoopRenderCache()
	}

	// Services
	draftStore := services.NewDraftStore(log, sectionRepo, cfg.DefaultLanguage)
	versionStore := services.NewVersionStore(log, txRunner, pageRepo, versionRepo)
	publisher := services.NewPublishController(log, txRunner, pageRepo, draftStore, versionStore, cache)
	recordSource := services.NewRecordSource(log, recordRepo)
	renderer := services.NewHybridRenderer(log, pageRepo, versionStore, draftStore, recordSource, cache)
	authService := services.NewAuthService(log, editorRepo, cfg.JWTSecretKey, cfg.TokenTTL)
	guard := services.NewDraftGuard(log, authService)

	server := pagehttp.NewServer(pagehttp.RouterConfig{
		Log:            log,
		AuthHandler:    handlers.NewAuthHandler(authService),
		AuthMiddleware: middleware.NewAuthMiddleware(log, authService),
		PageHandler:    handlers.NewPageHandler(renderer, guard, cfg.DefaultLanguage),
		VersionHandler: handlers.NewVersionHandler(publisher, versionStore, cfg.RetentionKeep),
		HealthHandler:  handlers.NewHealthHandler(),
		AllowedOrigins: cfg.AllowedOrigins,
		ServiceName:    cfg.ServiceName,
	})

	return &App{
		Log:             log,
		DB:              gdb,
		Server:          server,
		Cfg:             cfg,
		shutdownTracing: shutdownTracing,
	}, nil
}

func (a *App) Run() error {
	a.Log.Info("server starting", "addr", a.Cfg.ListenAddr)
	return a.Server.Run(a.Cfg.ListenAddr)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.Log.Warn("tracing shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
