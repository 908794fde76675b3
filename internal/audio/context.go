package audio

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrContextBusy   = errors.New("audio context is owned by another session")
	ErrReleased      = errors.New("audio session already released")
	ErrNoDestination = errors.New("audio session has no destination")
)

// Destination receives scheduled clips. at is in seconds on the owning
// context's clock.
type Destination interface {
	AcceptAudio(samples []float32, sampleRate int, at float64) error
}

// Context is a shared audio output resource. At most one Session owns it
// at a time; owners must Release before another caller can Acquire.
type Context struct {
	clock Clock

	mu    sync.Mutex
	owner string
}

func NewContext(clock Clock) *Context {
	return &Context{clock: clock}
}

// Clock returns the context clock.
func (c *Context) Clock() Clock { return c.clock }

// Owner returns the current owner, or "" when free.
func (c *Context) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Acquire takes exclusive ownership of the context for owner.
func (c *Context) Acquire(owner string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != "" {
		return nil, fmt.Errorf("%w: %s", ErrContextBusy, c.owner)
	}
	c.owner = owner
	return &Session{ctx: c, owner: owner}, nil
}

func (c *Context) release(owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner == owner {
		c.owner = ""
	}
}

// Session is one owner's use of a Context.
type Session struct {
	ctx   *Context
	owner string

	mu       sync.Mutex
	dest     Destination
	released bool
}

// Now reads the context clock.
func (s *Session) Now() float64 { return s.ctx.clock.Now() }

// Clock returns the context clock.
func (s *Session) Clock() Clock { return s.ctx.clock }

// Connect routes scheduled clips to dest.
func (s *Session) Connect(dest Destination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dest = dest
}

// Schedule queues clip to start at the given clock time. Clips are handed
// to the destination immediately; the destination places them on its own
// timeline.
func (s *Session) Schedule(clip *Decoded, at float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrReleased
	}
	if s.dest == nil {
		return ErrNoDestination
	}
	if clip == nil || len(clip.Samples) == 0 {
		return nil
	}
	return s.dest.AcceptAudio(clip.Samples, clip.SampleRate, at)
}

// Release gives the context back. Calling it more than once is harmless.
func (s *Session) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.dest = nil
	s.mu.Unlock()
	s.ctx.release(s.owner)
}
