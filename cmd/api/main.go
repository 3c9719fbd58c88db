package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kancherish/social-media-analyzer-backend/internal/cache"
	"github.com/kancherish/social-media-analyzer-backend/internal/middleware"
	"github.com/kancherish/social-media-analyzer-backend/internal/routers"
	"github.com/kancherish/social-media-analyzer-backend/internal/shared"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Flags / ENV Variables
	modelToken := flag.String("model-token", "", "Bearer token for the Langflow API")
	port := flag.Int("port", shared.DefaultPort, "Port to listen on")
	host := flag.String("host", shared.DefaultHost, "Host to bind to")
	langflowURL := flag.String("langflow-url", shared.DefaultLangflowURL, "Langflow API base URL")
	flowID := flag.String("flow-id", shared.DefaultFlowID, "Flow id to run")
	flowGroupID := flag.String("flow-group-id", shared.DefaultFlowGroupID, "Flow group id to run against")
	redisAddr := flag.String("redis-addr", "", "Redis host:port, empty for in-memory caching")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key")
	debug := flag.Bool("debug", false, "Debug enabled")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	var logger *zap.Logger
	if !*debug {
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed init logger")
		}
	}
	if *debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic("Failed init logger")
		}
	}
	log := logger.Sugar()

	if *modelToken == "" {
		log.Warn("MODEL_TOKEN is not set; insight lookups will fail until it is")
	}

	var store cache.Store
	if *redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: "",
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			panic(fmt.Sprintf("failed ping to redis db: %s", err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		store = cache.NewRedisStore(redisClient)
	} else {
		memStore := cache.NewMemoryStore(shared.CacheSweepInterval)
		defer memStore.Stop()
		store = memStore
	}
	log.Infow("Cache backend ready", "backend", store.Backend())

	e := echo.New()
	e.GET(("/ping"), func(c echo.Context) error {
		return c.String(200, "")
	})
	metricsHandler := echo.WrapHandler(promhttp.Handler())
	if *metricsAPIKey != "" {
		e.GET("/metrics", metricsHandler, middleware.NewMetricsAuthMiddleware(*metricsAPIKey))
	} else {
		e.GET("/metrics", metricsHandler)
	}

	base := e.Group("")
	base.Use(middleware.NewCORSMiddleware())
	base.Use(middleware.NewRecoverMiddleware(log))
	base.Use(middleware.NewTrackMiddleware(log))
	base.Use(middleware.NewRateLimitMiddleware())

	// Register routes
	routers.RegisterHealthRoutes(base)
	err = routers.RegisterInsightsRoutes(base, routers.InsightsRouterConfig{
		BaseURL:     *langflowURL,
		Token:       *modelToken,
		FlowID:      *flowID,
		FlowGroupID: *flowGroupID,
	}, store, log)
	if err != nil {
		panic(err)
	}

	go func() {
		if err := e.Start(fmt.Sprintf("%s:%d", *host, *port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Wait for interrupt signal to gracefully shut down the server with a timeout of 10 seconds.
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
