package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/loops-hq/loops-backend/internal/api/http"
	"github.com/loops-hq/loops-backend/internal/api/http/middleware"
	"github.com/loops-hq/loops-backend/internal/auth"
	loophttp "github.com/loops-hq/loops-backend/internal/loops/http"
	projecthttp "github.com/loops-hq/loops-backend/internal/projects/http"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string

	DB    *pgxpool.Pool
	Redis *redis.Client

	Projects projecthttp.ProjectService
	Loops    loophttp.LoopService
	// Events is nil when Redis is disabled; the SSE endpoint then answers 503.
	Events loophttp.EventSubscriber

	// Auth resolves the current user on every authenticated route.
	Auth    gin.HandlerFunc
	Limiter *middleware.RateLimiter
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(corsConfig(dep.AllowedOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, healthChecks(dep)...)
	healthHandler.RegisterRoutes(r)

	toDashboard := func(c *gin.Context) { c.Redirect(http.StatusFound, "/dashboard") }
	r.GET("/", toDashboard)
	r.GET("/home", toDashboard)

	loopHandler := loophttp.New(dep.Loops, dep.Events)
	loopHandler.RegisterInternal(r)

	api := r.Group("")
	if dep.Auth != nil {
		api.Use(dep.Auth)
	}

	projecthttp.New(dep.Projects).Register(api.Group("/projects"))

	var mutate []gin.HandlerFunc
	if dep.Limiter != nil {
		mutate = append(mutate, dep.Limiter.Middleware(userKey))
	}
	loopHandler.Register(api, mutate...)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func healthChecks(dep RouterDeps) []httpapi.Check {
	pg := httpapi.Check{Name: "postgres"}
	if dep.DB != nil {
		pg.Ping = dep.DB.Ping
	}
	rd := httpapi.Check{Name: "redis"}
	if dep.Redis != nil {
		rd.Ping = func(ctx context.Context) error { return dep.Redis.Ping(ctx).Err() }
	}
	return []httpapi.Check{pg, rd}
}

// userKey counts requests per authenticated user.
func userKey(c *gin.Context) string {
	if id, ok := auth.UserID(c); ok {
		return id.String()
	}
	return ""
}
