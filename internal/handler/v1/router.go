package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthflow/healthflow-api/internal/config"
	"github.com/healthflow/healthflow-api/internal/realtime"
	"github.com/healthflow/healthflow-api/pkg/auth"
	"github.com/healthflow/healthflow-api/pkg/metrics"
)

// NewRouter assembles the HTTP surface: versioned REST API, websocket
// upgrade endpoint, health check, and Prometheus metrics.
func NewRouter(
	cfg *config.Config,
	jwtManager *auth.JWTManager,
	appointments *AppointmentHandler,
	schedule *ScheduleHandler,
	chat *ChatHandler,
	ws *realtime.WSHandler,
	m *metrics.Collector,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.CORS))
	r.Use(MetricsMiddleware(m))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	authed := r.Group("/", AuthMiddleware(jwtManager))
	authed.GET("/ws", ws.Handle)

	api := authed.Group("/api/v1")
	appointments.RegisterRoutes(api)
	schedule.RegisterRoutes(api)
	chat.RegisterRoutes(api)

	return r
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
			c.Header("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
			c.Header("Access-Control-Max-Age", time.Duration(cfg.MaxAge).String())
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
