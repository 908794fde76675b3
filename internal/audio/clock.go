package audio

import (
	"context"
	"sync"
	"time"
)

// Clock is the audio timeline every scheduled clip and rendered frame is
// measured against. Now is in seconds since the clock was created.
type Clock interface {
	Now() float64
	// Sleep waits d seconds of clock time or until ctx is done.
	Sleep(ctx context.Context, d float64) error
}

// RealtimeClock follows the monotonic wall clock.
type RealtimeClock struct {
	start time.Time
}

func NewRealtimeClock() *RealtimeClock {
	return &RealtimeClock{start: time.Now()}
}

func (c *RealtimeClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

func (c *RealtimeClock) Sleep(ctx context.Context, d float64) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(d * float64(time.Second)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// VirtualClock only moves when slept on, so offline renders run as fast as
// frames can be produced while staying frame-exact.
type VirtualClock struct {
	mu  sync.Mutex
	now float64
}

func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

func (c *VirtualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) Sleep(ctx context.Context, d float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		c.mu.Lock()
		c.now += d
		c.mu.Unlock()
	}
	return nil
}
