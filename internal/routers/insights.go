// Package routers registers route groups on the gateway
package routers

import (
	"github.com/kancherish/social-media-analyzer-backend/internal/cache"
	"github.com/kancherish/social-media-analyzer-backend/internal/langflow"
	"github.com/kancherish/social-media-analyzer-backend/internal/routes/insights"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type InsightsRouter struct {
	im *insights.InsightsManager
}

type InsightsRouterConfig struct {
	BaseURL     string
	Token       string
	FlowID      string
	FlowGroupID string
}

func RegisterInsightsRoutes(
	e *echo.Group,
	config InsightsRouterConfig,
	store cache.Store,
	log *zap.SugaredLogger,
) error {
	client := langflow.NewClient(config.BaseURL, config.Token, log)

	insightsManager, err := insights.NewInsightsManager(client.RunFlow, store, log, insights.Config{
		Token:       config.Token,
		FlowID:      config.FlowID,
		FlowGroupID: config.FlowGroupID,
	})
	if err != nil {
		return err
	}

	insightsRouter := &InsightsRouter{im: insightsManager}

	insightsGroup := e.Group("/insights")
	insightsGroup.GET("/:keyword", insightsRouter.im.GetInsightsHandler)
	insightsGroup.GET("/:keyword/stream", insightsRouter.im.StreamInsightsHandler)

	return nil
}
