// package stats counts what the rewrite stage did with each call,
// keyed by phase and outcome (e.g. request_rewritten)
package stats

import (
	"context"
)

// Store keeps outcome counters shared by every instance using it
type Store interface {
	// Increment adds one to the counter named key
	Increment(ctx context.Context, key string) error
	// Counts returns a snapshot of every counter
	Counts(ctx context.Context) (map[string]int64, error)
	Healthcheck(ctx context.Context) error
}
