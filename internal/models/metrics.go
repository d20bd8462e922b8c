package models

import "time"

// MetricsSnapshot summarises process level counters for the API.
type MetricsSnapshot struct {
	RequestsTotal            uint64            `json:"requestsTotal"`
	AverageRequestDurationMs float64           `json:"averageRequestDurationMs"`
	Submissions              map[string]uint64 `json:"submissions"`
	ReportsFinished          uint64            `json:"reportsFinished"`
	ReportsFailed            uint64            `json:"reportsFailed"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generatedAt"`
}
