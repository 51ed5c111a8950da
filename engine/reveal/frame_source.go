package reveal

import (
	"context"
	"sync"
	"time"
)

// FrameSource yields animation frames. NextFrame blocks until the next frame is presented and
// returns its timestamp, or returns the context error if ctx ends first.
type FrameSource interface {
	NextFrame(ctx context.Context) (time.Time, error)
}

// FrameClock is a FrameSource driven by the render loop. Every call to Tick releases all
// goroutines waiting in NextFrame.
type FrameClock interface {
	FrameSource

	// Tick publishes a new frame.
	//
	// Parameters:
	//   - now: the frame timestamp
	Tick(now time.Time)

	// Frames returns the number of frames published so far.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64
}

type frameClock struct {
	mu     sync.Mutex
	next   chan struct{}
	last   time.Time
	frames uint64
}

var _ FrameClock = &frameClock{}

// NewFrameClock creates a FrameClock with no published frames.
//
// Returns:
//   - FrameClock: the new clock
func NewFrameClock() FrameClock {
	return &frameClock{next: make(chan struct{})}
}

func (c *frameClock) Tick(now time.Time) {
	c.mu.Lock()
	c.last = now
	c.frames++
	close(c.next)
	c.next = make(chan struct{})
	c.mu.Unlock()
}

func (c *frameClock) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func (c *frameClock) NextFrame(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	wait := c.next
	c.mu.Unlock()

	select {
	case <-wait:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.last, nil
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	}
}

// SteppedFrames is a controllable FrameSource for tests and headless runs. Each NextFrame
// call advances the current time by a fixed step and returns immediately.
type SteppedFrames struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
	calls   int
}

var _ FrameSource = &SteppedFrames{}

// NewSteppedFrames creates a stepped source starting at start.
//
// Parameters:
//   - start: the timestamp of the first frame
//   - step: the time between frames
//
// Returns:
//   - *SteppedFrames: the new frame source
func NewSteppedFrames(start time.Time, step time.Duration) *SteppedFrames {
	return &SteppedFrames{current: start, step: step}
}

// NextFrame returns the current time and advances it by one step.
func (s *SteppedFrames) NextFrame(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.current
	s.current = s.current.Add(s.step)
	s.calls++
	return now, nil
}

// Calls returns how many frames have been requested.
func (s *SteppedFrames) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
