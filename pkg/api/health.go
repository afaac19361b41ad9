package api

// HealthResponse ответ /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
