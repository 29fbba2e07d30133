package database

import "context"

// MetricsDatabase stores one RewriteMetric per call served by the rewrite stage
type MetricsDatabase interface {
	SaveRewriteMetric(ctx context.Context, metric *RewriteMetric) error
	ListRewriteMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]*RewriteMetric, int64, error)
	DeleteRewriteMetricsOlderThanNDays(ctx context.Context, n int64) error
	HealthCheck() error
}
