package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/pagelift/pagelift-backend/internal/http/handlers"
	httpMW "github.com/pagelift/pagelift-backend/internal/http/middleware"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	PageHandler    *httpH.PageHandler
	VersionHandler *httpH.VersionHandler
	HealthHandler  *httpH.HealthHandler

	AllowedOrigins []string
	ServiceName    string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLog(cfg.Log))
	}
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/login", cfg.AuthHandler.Login)
		}

		// Published pages (public, cacheable)
		if cfg.PageHandler != nil {
			api.GET("/pages/:id", cfg.PageHandler.GetPublished)
			// Preview does its own token check via DraftGuard so that every
			// failure mode answers 404.
			api.GET("/pages/:id/preview", httpMW.NoStore(), cfg.PageHandler.GetPreview)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		protected.Use(httpMW.NoStore())

		// Versioning & publishing (admin)
		if cfg.VersionHandler != nil {
			protected.POST("/pages/:id/versions/publish", cfg.VersionHandler.Publish)
			protected.POST("/pages/:id/versions/unpublish", cfg.VersionHandler.Unpublish)
			protected.POST("/pages/:id/versions/prune", cfg.VersionHandler.Prune)
			protected.POST("/pages/:id/versions/:versionID/publish", cfg.VersionHandler.PublishExisting)
			protected.GET("/pages/:id/versions", cfg.VersionHandler.List)
			protected.GET("/pages/:id/versions/has-changes", cfg.VersionHandler.HasChanges)
			protected.GET("/pages/:id/versions/compare/:v1/:v2", cfg.VersionHandler.Compare)
			protected.GET("/pages/:id/versions/:versionID", cfg.VersionHandler.Get)
			protected.DELETE("/pages/:id/versions/:versionID", cfg.VersionHandler.Delete)
			protected.DELETE("/pages/:id/draft", cfg.VersionHandler.DiscardDraft)
		}
	}

	return r
}
