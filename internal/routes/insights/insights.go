// Package insights includes all routes and functionality for keyword insight lookups
package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kancherish/social-media-analyzer-backend/internal/cache"
	"github.com/kancherish/social-media-analyzer-backend/internal/langflow"
	"github.com/kancherish/social-media-analyzer-backend/internal/metrics"
	"github.com/kancherish/social-media-analyzer-backend/internal/shared"

	"go.uber.org/zap"
)

// RunFlowFunc starts one flow execution. *langflow.Client satisfies it.
type RunFlowFunc func(ctx context.Context, req langflow.FlowRequest) (*langflow.RunResult, error)

// Config carries the flow coordinates every lookup runs against.
type Config struct {
	Token       string
	FlowID      string
	FlowGroupID string
}

type InsightsManager struct {
	Log     *zap.SugaredLogger
	RunFlow RunFlowFunc
	Cache   cache.Store
	Config  Config
}

func NewInsightsManager(run RunFlowFunc, store cache.Store, log *zap.SugaredLogger, cfg Config) (*InsightsManager, error) {
	if run == nil {
		return nil, errors.New("missing flow runner")
	}
	if store == nil {
		return nil, errors.New("missing cache store")
	}
	return &InsightsManager{
		Log:     log,
		RunFlow: run,
		Cache:   store,
		Config:  cfg,
	}, nil
}

// LookupOptions selects the upstream invocation mode. Options are not part
// of the cache key, so a keyword cached under one mode answers every mode.
type LookupOptions struct {
	InputType  string
	OutputType string
}

func cacheKey(keyword string) string {
	return "insights:v1:" + keyword
}

// GetInsights returns the analyzer text for a keyword, serving a cached copy
// while one is fresh.
func (m *InsightsManager) GetInsights(ctx context.Context, keyword string, opts LookupOptions) (string, error) {
	key := cacheKey(keyword)
	cached, found, err := m.Cache.Get(ctx, key)
	if err != nil {
		m.Log.Warnw("Cache lookup failed", "key", key, "error", err.Error())
	}
	if found {
		metrics.CacheHits.WithLabelValues(m.Cache.Backend()).Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues(m.Cache.Backend()).Inc()

	if m.Config.Token == "" {
		return "", fmt.Errorf("%w: MODEL_TOKEN is not set", shared.ErrMissingCredential)
	}

	start := time.Now()
	result, err := m.RunFlow(ctx, langflow.FlowRequest{
		FlowID:      m.Config.FlowID,
		FlowGroupID: m.Config.FlowGroupID,
		InputValue:  keyword,
		InputType:   opts.InputType,
		OutputType:  opts.OutputType,
		Tweaks:      defaultTweaks(),
	})
	metrics.UpstreamRequestDuration.WithLabelValues("sync").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("insights lookup: %w", err)
	}

	text, ok := langflow.MessageText(result.Response)
	if !ok {
		return "", fmt.Errorf("%w: run response has no message text", shared.ErrInvalidResponseFormat)
	}

	if err := m.Cache.Set(ctx, key, text, shared.InsightsCacheTTL); err != nil {
		m.Log.Warnw("Failed to cache insights", "key", key, "error", err.Error())
	}
	return text, nil
}

// StreamInsights starts a streaming run for a keyword. The caller owns the
// returned stream and must close it. Nothing is cached in this mode.
func (m *InsightsManager) StreamInsights(ctx context.Context, keyword string, opts LookupOptions) (*langflow.RunResult, error) {
	if m.Config.Token == "" {
		return nil, fmt.Errorf("%w: MODEL_TOKEN is not set", shared.ErrMissingCredential)
	}

	start := time.Now()
	result, err := m.RunFlow(ctx, langflow.FlowRequest{
		FlowID:      m.Config.FlowID,
		FlowGroupID: m.Config.FlowGroupID,
		InputValue:  keyword,
		InputType:   opts.InputType,
		OutputType:  opts.OutputType,
		Stream:      true,
		Tweaks:      defaultTweaks(),
	})
	metrics.UpstreamRequestDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("insights stream: %w", err)
	}
	return result, nil
}

// defaultTweaks returns the component overrides sent with every run. The
// identifiers match the deployed flow graph; empty maps keep each component
// on its flow-configured settings.
func defaultTweaks() map[string]map[string]any {
	return map[string]map[string]any{
		"ChatInput-EsDrw":  {},
		"Prompt-G9G4k":     {},
		"GroqModel-u8fMA":  {},
		"ChatOutput-LbrZf": {},
	}
}
