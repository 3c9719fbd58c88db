package shared

import "time"

// HTTP Client Configuration
const (
	DefaultRequestTimeout    = 30 * time.Second
	DefaultStreamIdleTimeout = 30 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
)

// Cache Configuration
const (
	InsightsCacheTTL   = 1 * time.Hour
	CacheSweepInterval = 10 * time.Minute
)

// Server Configuration
const (
	DefaultPort = 3000
	DefaultHost = "0.0.0.0"

	RateLimitRequests   = 100
	RateLimitWindow     = 1 * time.Minute
	CORSPreflightMaxAge = 24 * time.Hour
)

// Upstream Flow Configuration
const (
	DefaultLangflowURL = "https://api.langflow.astra.datastax.com"
	DefaultFlowID      = "f2eefd80-bb91-4190-9279-0d6ffafeaac4"
	DefaultFlowGroupID = "396deb1c-aa75-4f03-8455-0d249bbb60f6"
)
