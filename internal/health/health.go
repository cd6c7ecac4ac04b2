// Package health provides orchestrator health monitoring and status
// reporting.
package health

import "time"

// SystemStatus represents the overall health state of the orchestrator.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report is the detailed health snapshot.
type Report struct {
	Status          SystemStatus `json:"status"`
	BalanceCacheAge string       `json:"balance_cache_age,omitempty"`
	BalanceCached   bool         `json:"balance_cached"`
	ActiveRequestID string       `json:"active_request_id,omitempty"`
	CheckedAt       time.Time    `json:"checked_at"`
}
