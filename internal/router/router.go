package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sigmarp/medical-api/internal/handler/prometheus"
	"github.com/sigmarp/medical-api/internal/middleware"
	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	health   Handler
	api      []Handler
	metricsH *prometheus.Handler
}

type RouterConfig struct {
	Mode        string
	RateLimit   rate.Limit
	RateBurst   int
	CORSConfig  middleware.CORSConfig
	MaxBodySize int64
	Metrics     *metrics.Metrics
}

// NewRouter builds the engine with the shared middleware chain. The health
// handler is mounted at the root; api handlers under /api/v1.
func NewRouter(log *logger.Logger, config RouterConfig, health Handler, api ...Handler) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.Metrics == nil {
		config.Metrics = metrics.Default
	}

	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.Metrics(config.Metrics),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(config.MaxBodySize),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return &Router{
		engine:   engine,
		health:   health,
		api:      api,
		metricsH: prometheus.New(nil),
	}
}

func (r *Router) Setup() {
	r.metricsH.RegisterRoutes(r.engine)
	if r.health != nil {
		r.health.RegisterRoutes(&r.engine.RouterGroup)
	}

	api := r.engine.Group("/api/v1")
	for _, h := range r.api {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
