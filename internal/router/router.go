package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medbot/internal/handler/health"
	"github.com/jwalitptl/medbot/internal/handler/prometheus"
	"github.com/jwalitptl/medbot/internal/middleware"
	"github.com/jwalitptl/medbot/pkg/logger"
)

const APIVersion = "1.0"

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine  *gin.Engine
	config  RouterConfig
	chatH   Handler
	healthH *health.Handler
	// metrics is nil when Prometheus is switched off.
	metrics *prometheus.Handler
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RateTTL        time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSConfig     middleware.CORSConfig
	MetricsPath    string
}

func NewRouter(
	chatH Handler,
	healthH *health.Handler,
	metrics *prometheus.Handler,
	log *logger.Logger,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}

	engine := gin.New()

	r := &Router{
		engine:  engine,
		config:  config,
		chatH:   chatH,
		healthH: healthH,
		metrics: metrics,
	}

	// Logger and metrics sit outside Recovery so panics are counted as 500s.
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(
		middleware.Recovery(log),
		middleware.ErrorHandler(log),
		middleware.SecurityHeaders(middleware.DefaultHeadersConfig()),
		middleware.CORS(config.CORSConfig),
	)

	return r
}

func (r *Router) Setup() {
	r.healthH.RegisterRoutes(r.engine)
	if r.metrics != nil {
		r.engine.GET(r.config.MetricsPath, r.metrics.Handler())
	}

	api := r.engine.Group("/api/v1")
	api.Use(
		middleware.Version(APIVersion),
		middleware.Cache(middleware.NoStoreConfig()),
		middleware.SizeLimit(middleware.SizeLimitConfig{
			MaxBodySize:   r.config.MaxBodyBytes,
			MaxHeaderSize: middleware.DefaultSizeLimitConfig().MaxHeaderSize,
		}),
		middleware.Timeout(middleware.TimeoutConfig{Duration: r.config.RequestTimeout}),
	)
	if r.config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
			TTL:   r.config.RateTTL,
		})
		api.Use(limiter.RateLimit())
	}

	r.chatH.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
