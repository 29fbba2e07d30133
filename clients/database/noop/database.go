package noop

import (
	"context"

	"github.com/kava-labs/envelope-rewrite-service/clients/database"
)

// Noop is a database client that does nothing,
// used when metric storage is disabled
type Noop struct{}

var _ database.MetricsDatabase = (*Noop)(nil)

func New() *Noop {
	return &Noop{}
}

func (e *Noop) SaveRewriteMetric(ctx context.Context, metric *database.RewriteMetric) error {
	return nil
}

func (e *Noop) ListRewriteMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]*database.RewriteMetric, int64, error) {
	return []*database.RewriteMetric{}, 0, nil
}

func (e *Noop) DeleteRewriteMetricsOlderThanNDays(ctx context.Context, n int64) error {
	return nil
}

func (e *Noop) HealthCheck() error {
	return nil
}
