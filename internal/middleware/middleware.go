// Package middleware defines the request middleware mounted on every gateway route
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kancherish/social-media-analyzer-backend/internal/metrics"
	"github.com/kancherish/social-media-analyzer-backend/internal/setup"
	"github.com/kancherish/social-media-analyzer-backend/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func NewTrackMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID, _ := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 28)
			logger := log.With(
				"request_id", "req_"+reqID,
			)

			cc := &setup.Context{Context: c, Log: logger, Reqid: reqID}
			start := time.Now()
			err := next(cc)
			duration := time.Since(start)
			cc.Log.Infow("end_of_request", "status_code", fmt.Sprintf("%d", cc.Response().Status), "duration", duration.String())
			metrics.ResponseCodes.WithLabelValues(cc.Path(), fmt.Sprintf("%d", cc.Response().Status)).Inc()
			return err
		}
	}
}

func NewRecoverMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return emw.RecoverWithConfig(emw.RecoverConfig{
		StackSize: 1 << 10, // 1 KB
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			defer func() {
				_ = log.Sync()
			}()
			log.Errorw("Api Panic", "error", err.Error())
			return c.JSON(shared.ErrInternalServerError.StatusCode, shared.APIResponse{Error: shared.ErrInternalServerError.Err.Error()})
		},
	})
}

// NewRateLimitMiddleware caps each client IP at the configured request rate.
// The bucket refills continuously, so the cap behaves as a rolling window.
func NewRateLimitMiddleware() echo.MiddlewareFunc {
	return emw.RateLimiterWithConfig(emw.RateLimiterConfig{
		Store: emw.NewRateLimiterMemoryStoreWithConfig(emw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(shared.RateLimitRequests) / shared.RateLimitWindow.Seconds()),
			Burst:     shared.RateLimitRequests,
			ExpiresIn: 3 * shared.RateLimitWindow,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, shared.APIResponse{Error: "Too Many Requests"})
		},
	})
}

// NewMetricsAuthMiddleware admits only callers presenting the configured
// bearer key.
func NewMetricsAuthMiddleware(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, err := shared.ExtractBearerToken(c)
			if err != nil {
				return c.String(401, "Missing or invalid API key")
			}
			if key != apiKey {
				return c.String(401, "Unauthorized API key")
			}
			return next(c)
		}
	}
}

func NewCORSMiddleware() echo.MiddlewareFunc {
	return emw.CORSWithConfig(emw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		MaxAge:       int(shared.CORSPreflightMaxAge.Seconds()),
	})
}
