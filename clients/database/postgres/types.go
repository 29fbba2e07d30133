package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/kava-labs/envelope-rewrite-service/clients/database"
)

// RewriteMetric is the row stored for
// a single call served by the rewrite stage
type RewriteMetric struct {
	bun.BaseModel `bun:"table:rewrite_metrics,alias:rm"`

	ID                          int64 `bun:",pk,autoincrement"`
	RequestID                   string
	Method                      string
	RequestOutcome              string
	ResponseOutcome             string
	StatusCode                  int
	ResponseLatencyMilliseconds int64
	Hostname                    string
	RequestIP                   string `bun:"request_ip"`
	UserAgent                   *string
	RequestTime                 time.Time
}

func (rm *RewriteMetric) ToRewriteMetric() *database.RewriteMetric {
	return &database.RewriteMetric{
		ID:                          rm.ID,
		RequestID:                   rm.RequestID,
		Method:                      rm.Method,
		RequestOutcome:              rm.RequestOutcome,
		ResponseOutcome:             rm.ResponseOutcome,
		StatusCode:                  rm.StatusCode,
		ResponseLatencyMilliseconds: rm.ResponseLatencyMilliseconds,
		Hostname:                    rm.Hostname,
		RequestIP:                   rm.RequestIP,
		UserAgent:                   rm.UserAgent,
		RequestTime:                 rm.RequestTime,
	}
}

func convertRewriteMetric(metric *database.RewriteMetric) *RewriteMetric {
	return &RewriteMetric{
		ID:                          metric.ID,
		RequestID:                   metric.RequestID,
		Method:                      metric.Method,
		RequestOutcome:              metric.RequestOutcome,
		ResponseOutcome:             metric.ResponseOutcome,
		StatusCode:                  metric.StatusCode,
		ResponseLatencyMilliseconds: metric.ResponseLatencyMilliseconds,
		Hostname:                    metric.Hostname,
		RequestIP:                   metric.RequestIP,
		UserAgent:                   metric.UserAgent,
		RequestTime:                 metric.RequestTime,
	}
}
