package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Requests counts requests being served so shutdown can wait for them.
type Requests struct {
	n atomic.Int64
}

// Track marks one request started. The returned func marks it finished; extra calls are no-ops.
func (r *Requests) Track() (done func()) {
	r.n.Add(1)
	var once sync.Once
	return func() { once.Do(func() { r.n.Add(-1) }) }
}

func (r *Requests) Count() int64 { return r.n.Load() }

// Wait polls every interval until nothing is in flight or ctx ends.
func (r *Requests) Wait(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for r.Count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// InFlight is the process-wide tracker fed by the HTTP metrics middleware.
var InFlight = &Requests{}

// WaitStep is the Drain step that waits for InFlight to empty.
func WaitStep(timeout, interval time.Duration) Step {
	return Step{
		Name:    "in-flight requests",
		Timeout: timeout,
		Run:     func(ctx context.Context) error { return InFlight.Wait(ctx, interval) },
	}
}
