// Package health provides shared types for health check responses.
package health

// Response is the body of the browse server's /health endpoint.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      Data   `json:"data"`
	Error     string `json:"error,omitempty"`
}

// Data carries the server details of a health Response.
type Data struct {
	Service   string `json:"service"`
	Version   string `json:"version,omitempty"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
	Drives    int    `json:"drives"`
}
