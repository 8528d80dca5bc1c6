package guard

import (
	"context"
	"time"
)

// Sweeper drops expired guard state.
type Sweeper interface {
	Sweep()
}

// RunSweeper calls Sweep on every sweeper each interval until ctx is done.
func RunSweeper(ctx context.Context, interval time.Duration, sweepers ...Sweeper) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range sweepers {
				s.Sweep()
			}
		}
	}
}
