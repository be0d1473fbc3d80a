// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves /health and /ready.
type Handler struct {
	pinger  Pinger
	service string
	timeout time.Duration
}

// NewHandler creates a new health Handler.
func NewHandler(pinger Pinger, service string) *Handler {
	return &Handler{pinger: pinger, service: service, timeout: 2 * time.Second}
}

// RegisterRoutes registers the probe routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.Live)
	r.GET("/ready", h.Ready)
}

// Live reports that the process is serving.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready reports whether the store answers a ping.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"service": h.service,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "service": h.service})
}
