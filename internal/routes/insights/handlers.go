package insights

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kancherish/social-media-analyzer-backend/internal/langflow"
	"github.com/kancherish/social-media-analyzer-backend/internal/metrics"
	"github.com/kancherish/social-media-analyzer-backend/internal/setup"
	"github.com/kancherish/social-media-analyzer-backend/internal/shared"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// GetInsightsHandler serves GET /insights/:keyword.
func (m *InsightsManager) GetInsightsHandler(cc echo.Context) error {
	c := cc.(*setup.Context)

	keyword := strings.TrimSpace(c.Param("keyword"))
	if keyword == "" {
		return c.JSON(http.StatusBadRequest, shared.APIResponse{Error: "keyword is required"})
	}

	data, err := m.GetInsights(c.Request().Context(), keyword, lookupOptions(c))
	if err != nil {
		c.Log.Errorw("Failed to get insights", "keyword", keyword, "error", err.Error())
		return c.JSON(shared.ErrInternalServerError.StatusCode, shared.APIResponse{Error: shared.ErrInternalServerError.Err.Error()})
	}

	return c.JSON(http.StatusOK, shared.APIResponse{Success: true, Data: data})
}

// StreamInsightsHandler serves GET /insights/:keyword/stream, relaying the
// upstream event stream to the client as server-sent events. When the
// upstream answers synchronously anyway, the text comes back as plain JSON.
func (m *InsightsManager) StreamInsightsHandler(cc echo.Context) error {
	c := cc.(*setup.Context)

	keyword := strings.TrimSpace(c.Param("keyword"))
	if keyword == "" {
		return c.JSON(http.StatusBadRequest, shared.APIResponse{Error: "keyword is required"})
	}

	result, err := m.StreamInsights(c.Request().Context(), keyword, lookupOptions(c))
	if err != nil {
		c.Log.Errorw("Failed to start insights stream", "keyword", keyword, "error", err.Error())
		return c.JSON(shared.ErrInternalServerError.StatusCode, shared.APIResponse{Error: shared.ErrInternalServerError.Err.Error()})
	}

	if result.Stream == nil {
		text, ok := langflow.MessageText(result.Response)
		if !ok {
			c.Log.Errorw("Run response has no message text", "keyword", keyword)
			return c.JSON(shared.ErrInternalServerError.StatusCode, shared.APIResponse{Error: shared.ErrInternalServerError.Err.Error()})
		}
		return c.JSON(http.StatusOK, shared.APIResponse{Success: true, Data: text})
	}
	defer result.Stream.Drain()

	c.Response().Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	events := result.Stream.Events()
	for events != nil {
		select {
		case <-ctx.Done():
			return nil
		case ev, open := <-events:
			if !open {
				events = nil
				break
			}
			sendEvent(c, "new_message", ev.Data)
			metrics.StreamEventsRelayed.Inc()
		}
	}

	if err := result.Stream.Err(); err != nil {
		c.Log.Errorw("Insights stream failed", "keyword", keyword, "error", err.Error())
		sendEvent(c, "error", map[string]any{"error": "stream failed"})
		return nil
	}
	sendEvent(c, "close", map[string]any{"message": "Stream closed"})
	return nil
}

// lookupOptions reads the optional mode overrides off the query string.
func lookupOptions(c *setup.Context) LookupOptions {
	return LookupOptions{
		InputType:  c.QueryParam("input_type"),
		OutputType: c.QueryParam("output_type"),
	}
}

func sendEvent(c *setup.Context, event string, data map[string]any) {
	eventID := uuid.New().String()
	fmt.Fprintf(c.Response(), "id: %s\n", eventID)
	fmt.Fprintf(c.Response(), "event: %s\n", event)
	eventData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n", string(eventData))
	fmt.Fprintf(c.Response(), "retry: %d\n\n", 1500)
	c.Response().Flush()
}
