package database

import (
	"time"
)

// RewriteMetric contains what the rewrite stage did
// during a single call to the service
type RewriteMetric struct {
	ID        int64
	RequestID string
	Method    string
	// RequestOutcome and ResponseOutcome are empty when the phase never ran
	RequestOutcome              string
	ResponseOutcome             string
	StatusCode                  int
	ResponseLatencyMilliseconds int64
	Hostname                    string
	RequestIP                   string
	UserAgent                   *string
	RequestTime                 time.Time
}
