package counter

import (
	"context"
	"strconv"

	"github.com/tradiehq/TradieHQ/internal/pkg/cache"
)

const workerCountersKey = "hubspot:worker:counters"

// Worker counter fields mirrored into Redis. These are cumulative,
// best-effort operational counters; the per-pass source of truth is the
// Metrics value returned by the worker itself.
const (
	FieldProcessed  = "processed"
	FieldSyncs      = "syncs"
	FieldErrors     = "errors"
	FieldDeadLetter = "dlq"
)

// AddWorkerCounter increments a cumulative worker counter in Redis.
// Callers treat failures as best-effort.
func AddWorkerCounter(field string, delta int64) error {
	if delta == 0 {
		return nil
	}
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, workerCountersKey, field, delta).Err()
}

// WorkerTotals returns the cumulative worker counters.
func WorkerTotals() (map[string]int64, error) {
	ctx := context.Background()
	data, err := cache.GetClient().HGetAll(ctx, workerCountersKey).Result()
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, len(data))
	for field, raw := range data {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			totals[field] = v
		}
	}
	return totals, nil
}

// ResetWorkerTotals clears the cumulative worker counters.
func ResetWorkerTotals() error {
	ctx := context.Background()
	return cache.GetClient().Del(ctx, workerCountersKey).Err()
}
