package lifecycle

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var shuttingDown atomic.Bool

// SetShuttingDown sets the shutdown flag. /health returns 503 while it is true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// DelayStep holds shutdown for d while /health already reports 503, so load
// balancers stop routing before the listener closes.
func DelayStep(d time.Duration) Step {
	return Step{
		Name: "drain delay",
		Run: func(ctx context.Context) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// Step is one stage of graceful shutdown. A zero Timeout runs Run without a deadline.
type Step struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Drain sets the shutdown flag and runs steps in order. A failing step is logged
// and the remaining steps still run. Returns the number of failed steps.
func Drain(logger *zap.Logger, steps ...Step) int {
	SetShuttingDown(true)
	failed := 0
	for _, s := range steps {
		ctx := context.Background()
		cancel := func() {}
		if s.Timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		}
		start := time.Now()
		err := s.Run(ctx)
		cancel()
		if err != nil {
			failed++
			logger.Error("shutdown step failed", zap.String("step", s.Name), zap.Error(err))
			continue
		}
		logger.Debug("shutdown step done", zap.String("step", s.Name), zap.Duration("duration", time.Since(start)))
	}
	return failed
}
