// Package health includes the service liveness route
package health

import (
	"net/http"
	"time"

	"github.com/kancherish/social-media-analyzer-backend/internal/setup"
	"github.com/kancherish/social-media-analyzer-backend/internal/shared"

	"github.com/labstack/echo/v4"
)

type HealthManager struct {
	start time.Time
}

func NewHealthManager() *HealthManager {
	return &HealthManager{start: time.Now()}
}

// Health serves GET /health. It never fails.
func (h *HealthManager) Health(cc echo.Context) error {
	c := cc.(*setup.Context)
	return c.JSON(http.StatusOK, shared.HealthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: time.Since(h.start).Seconds(),
	})
}
