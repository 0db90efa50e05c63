package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Check is one dependency probed by the health endpoint. A nil Ping reports "disabled".
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	checks      []Check
	timeout     time.Duration
}

func NewHealthHandler(serviceName, version string, checks ...Check) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		checks:      checks,
		timeout:     1 * time.Second,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	deps := make(map[string]string, len(h.checks))

	for _, chk := range h.checks {
		if chk.Ping == nil {
			deps[chk.Name] = "disabled"
			continue
		}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := chk.Ping(pingCtx)
		cancel()

		if err != nil {
			deps[chk.Name] = "down"
			status = "degraded"
		} else {
			deps[chk.Name] = "up"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:       status,
		Timestamp:    time.Now().UTC(),
		Service:      h.serviceName,
		Version:      h.version,
		Dependencies: deps,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
