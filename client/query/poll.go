package query

import (
	"context"
	"time"
)

// Poll refetches key right away then every interval, passing each state to onUpdate, until ctx is done.
func Poll[T any](ctx context.Context, c *Cache, key Key, interval time.Duration, fn Fetcher[T], onUpdate func(State[T])) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st := Refetch(ctx, c, key, fn)
		if ctx.Err() != nil {
			return
		}
		if onUpdate != nil {
			onUpdate(st)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
