package routers

import (
	"github.com/kancherish/social-media-analyzer-backend/internal/routes/health"

	"github.com/labstack/echo/v4"
)

func RegisterHealthRoutes(e *echo.Group) {
	healthManager := health.NewHealthManager()
	e.GET("/health", healthManager.Health)
}
