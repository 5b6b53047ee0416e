// Package pace spaces out writes against rate-limited APIs.
package pace

import (
	"context"
	"time"
)

// Delay pauses for a fixed interval after every write. The pause is
// counted from the Wait call, so time spent elsewhere between writes never
// shortens it.
type Delay struct {
	interval time.Duration
}

// Every returns a Delay of interval. A zero or negative interval never
// blocks.
func Every(interval time.Duration) *Delay {
	return &Delay{interval: interval}
}

// Wait blocks for the interval or until ctx is done.
func (d *Delay) Wait(ctx context.Context) error {
	if d.interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
