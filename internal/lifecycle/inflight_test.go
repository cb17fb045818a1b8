package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequests_Track(t *testing.T) {
	var r Requests
	done1 := r.Track()
	done2 := r.Track()
	assert.EqualValues(t, 2, r.Count())

	done1()
	done1()
	assert.EqualValues(t, 1, r.Count(), "done is idempotent")

	done2()
	assert.Zero(t, r.Count())
}

func TestRequests_WaitReturnsWhenDrained(t *testing.T) {
	var r Requests
	done := r.Track()
	go func() {
		time.Sleep(10 * time.Millisecond)
		done()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx, 2*time.Millisecond))
}

func TestRequests_WaitHonoursContext(t *testing.T) {
	var r Requests
	defer r.Track()()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Wait(ctx, time.Millisecond), context.Canceled)
}

func TestWaitStep(t *testing.T) {
	step := WaitStep(50*time.Millisecond, time.Millisecond)
	assert.Equal(t, "in-flight requests", step.Name)

	done := InFlight.Track()
	ctx, cancel := context.WithTimeout(context.Background(), step.Timeout)
	defer cancel()
	assert.ErrorIs(t, step.Run(ctx), context.DeadlineExceeded)

	done()
	assert.NoError(t, step.Run(context.Background()))
}
