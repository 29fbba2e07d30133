package postgres

import (
	"context"
	"time"

	"github.com/kava-labs/envelope-rewrite-service/clients/database"
)

const (
	RewriteMetricsTableName = "rewrite_metrics"
)

// SaveRewriteMetric saves the metric to the database, returning error (if any).
func (c *Client) SaveRewriteMetric(ctx context.Context, metric *database.RewriteMetric) error {
	rm := convertRewriteMetric(metric)
	_, err := c.db.NewInsert().Model(rm).Exec(ctx)
	if err != nil {
		return err
	}

	metric.ID = rm.ID

	return nil
}

// ListRewriteMetricsWithPagination returns a page of max
// `limit` RewriteMetrics from the offset specified by `cursor`
// error (if any) along with a cursor to use to fetch the next page
// if the cursor is 0 no more pages exists.
func (c *Client) ListRewriteMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]*database.RewriteMetric, int64, error) {
	var rewriteMetrics []RewriteMetric
	var nextCursor int64

	err := c.db.NewSelect().
		Model(&rewriteMetrics).
		Where("id > ?", cursor).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	// a full page means there may be more rows after the last one
	if limit > 0 && len(rewriteMetrics) == limit {
		nextCursor = rewriteMetrics[len(rewriteMetrics)-1].ID
	}

	metrics := make([]*database.RewriteMetric, 0, len(rewriteMetrics))
	for i := range rewriteMetrics {
		metrics = append(metrics, rewriteMetrics[i].ToRewriteMetric())
	}

	// otherwise leave nextCursor as 0 to signal no more rows
	return metrics, nextCursor, nil
}

// DeleteRewriteMetricsOlderThanNDays deletes
// all rewrite metrics older than the specified
// days, returning error (if any).
// Used during pruning process.
func (c *Client) DeleteRewriteMetricsOlderThanNDays(ctx context.Context, n int64) error {
	cutoff := time.Now().AddDate(0, 0, -int(n))

	_, err := c.db.NewDelete().
		Model((*RewriteMetric)(nil)).
		Where("request_time < ?", cutoff).
		Exec(ctx)

	return err
}
