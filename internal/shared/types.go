package shared

// APIResponse is the flat envelope every gateway route answers with. Error
// detail beyond validation messages never leaves the server; failures carry
// a generic message only. Data always serializes so the success shape stays
// stable even for an empty insight.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}
