package api

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
