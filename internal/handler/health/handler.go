// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is any dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named readiness dependency. Optional checks are reported but
// do not fail readiness.
type Check struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

type Handler struct {
	checks  []Check
	timeout time.Duration
}

func NewHandler(timeout time.Duration, checks ...Check) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Handler{
		checks:  checks,
		timeout: timeout,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health/live", h.LivenessCheck)
	r.GET("/health/ready", h.ReadinessCheck)
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	components := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		if err := check.Pinger.Ping(ctx); err != nil {
			components[check.Name] = gin.H{"status": "DOWN", "reason": err.Error()}
			if !check.Optional {
				status = http.StatusServiceUnavailable
			}
			continue
		}
		components[check.Name] = gin.H{"status": "UP"}
	}

	overall := "UP"
	if status != http.StatusOK {
		overall = "DOWN"
	}
	c.JSON(status, gin.H{"status": overall, "components": components})
}
