package janitor

import (
	"context"
	"time"
)

type Sweeper interface {
	Sweep(now time.Time) (challenges, rooms int)
}

// Run sweeps expired challenges and idle rooms every interval.
// Run must be started once at service boot; it returns when ctx is done.
func Run(ctx context.Context, s Sweeper, interval time.Duration) {
	tk := time.NewTicker(interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tk.C:
			s.Sweep(now)
		}
	}
}
