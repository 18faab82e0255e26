package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/hotfeed/config"
	"github.com/d60-Lab/hotfeed/internal/api/handler"
	"github.com/d60-Lab/hotfeed/internal/api/middleware"
)

// NewRouter 组装路由与中间件。
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(ginMode(cfg.Server.Mode))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("hotfeed"))
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/feed/hot", h.HotFeed)
		v1.GET("/posts/:post_id", h.GetPost)
		v1.GET("/posts/:post_id/aggregates", h.PostAggregates)
		v1.GET("/posts/:post_id/likes", h.ListLikes)
		v1.GET("/posts/:post_id/likes/:user_id/status", h.LikeStatus)

		writes := v1.Group("")
		if cfg.Auth.Enabled {
			writes.Use(middleware.Auth(cfg.Auth.Secret))
		}
		writes.POST("/posts", h.CreatePost)
		writes.PUT("/posts/:post_id", h.UpdatePost)
		writes.DELETE("/posts/:post_id", h.DeletePost)
		writes.POST("/posts/:post_id/likes", h.AddLike)
		writes.DELETE("/posts/:post_id/likes/:user_id", h.RemoveLike)
	}

	return r
}

func ginMode(mode string) string {
	if mode == "debug" {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
