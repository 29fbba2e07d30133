// package routines provides configuration and logic
// for running background routines such as metric pruning
// for deleting historical rewrite metrics
package routines

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kava-labs/envelope-rewrite-service/clients/database"
	"github.com/kava-labs/envelope-rewrite-service/logging"
)

// MetricPruningRoutineConfig wraps values used
// for creating a new metric pruning routine
type MetricPruningRoutineConfig struct {
	Interval       time.Duration
	StartDelay     time.Duration
	MaxHistoryDays int
	Database       database.MetricsDatabase
	Logger         logging.ServiceLogger
}

// MetricPruningRoutine can be used to
// run a background routine on a configurable interval
// to delete rewrite metrics older than the retained history
type MetricPruningRoutine struct {
	id             string
	interval       time.Duration
	startDelay     time.Duration
	maxHistoryDays int
	db             database.MetricsDatabase
	logging.ServiceLogger
}

// Run starts the metric pruning routine in the background, returning
// error (if any) from starting the routine and an error channel which
// any errors encountered during running will be sent on. The routine
// stops and closes the channel once ctx is done.
func (mpr *MetricPruningRoutine) Run(ctx context.Context) (<-chan error, error) {
	errorChannel := make(chan error, 1)

	go func() {
		defer close(errorChannel)

		select {
		case <-ctx.Done():
			return
		case <-time.After(mpr.startDelay):
		}

		ticker := time.NewTicker(mpr.interval)
		defer ticker.Stop()

		for {
			mpr.Trace().Msg(fmt.Sprintf("%s pruning metrics older than %d days", mpr.id, mpr.maxHistoryDays))

			if err := mpr.db.DeleteRewriteMetricsOlderThanNDays(ctx, int64(mpr.maxHistoryDays)); err != nil {
				mpr.Error().Err(err).Msg(fmt.Sprintf("%s error pruning rewrite metrics", mpr.id))

				// don't block the routine on a caller that stopped reading errors
				select {
				case errorChannel <- err:
				default:
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return errorChannel, nil
}

// NewMetricPruningRoutine creates a new metric pruning routine
// using the provided config, returning the routine and error (if any)
func NewMetricPruningRoutine(config MetricPruningRoutineConfig) (*MetricPruningRoutine, error) {
	if config.Database == nil {
		return nil, errors.New("metric pruning routine requires a database")
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("metric pruning interval must be positive, got %s", config.Interval)
	}
	if config.MaxHistoryDays < 1 {
		return nil, fmt.Errorf("metric pruning max history days must be at least 1, got %d", config.MaxHistoryDays)
	}

	return &MetricPruningRoutine{
		id:             uuid.New().String(),
		interval:       config.Interval,
		startDelay:     config.StartDelay,
		maxHistoryDays: config.MaxHistoryDays,
		db:             config.Database,
		ServiceLogger:  config.Logger,
	}, nil
}
