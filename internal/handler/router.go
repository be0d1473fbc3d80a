package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hallbook/service-reservation/internal/platform/middleware"
	"go.uber.org/zap"
)

// RouteRegistrar is implemented by every handler.
type RouteRegistrar interface {
	RegisterRoutes(r *gin.RouterGroup)
}

// RouterConfig tunes the API middleware. A nil Cache disables response caching.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	RequestTimeout  time.Duration
	Cache           *middleware.ResponseCache
}

// NewRouter builds the gin engine. Probes skip rate limiting and caching.
func NewRouter(cfg RouterConfig, log *zap.Logger, probes RouteRegistrar, handlers ...RouteRegistrar) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	if probes != nil {
		probes.RegisterRoutes(&router.RouterGroup)
	}

	api := router.Group("/")
	api.Use(middleware.RateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst))
	api.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))
	if cfg.Cache != nil {
		api.Use(cfg.Cache.Middleware())
	}
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return router
}
