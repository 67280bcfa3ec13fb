package orient

import (
	"sync"
	"time"
)

// Clock is a free-running 32-bit tick counter (it wraps).
type Clock interface {
	Ticks() uint32
}

// MonotonicClock counts milliseconds since construction, wrapping at 2^32
// like an RTOS system tick.
type MonotonicClock struct {
	start time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

func (c *MonotonicClock) Ticks() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// Stepper turns successive tick readings into integration steps.
//
// The tick difference is taken modulo 2^32 and read as signed, so a counter
// wrapping forward still yields a small positive step. A zero or negative
// step (counter stalled or stepped back) is rejected and the estimator is
// handed zero elapsed time. Steps longer than Max are clamped.
type Stepper struct {
	clock Clock
	tick  time.Duration
	max   time.Duration

	mu   sync.Mutex
	prev uint32
	have bool
}

// NewStepper reads clk, where each tick lasts tick. max <= 0 disables the
// upper clamp.
func NewStepper(clk Clock, tick, max time.Duration) *Stepper {
	if tick <= 0 {
		tick = time.Millisecond
	}
	return &Stepper{clock: clk, tick: tick, max: max}
}

// Step returns the time since the previous call. ok is false when there is
// no usable step (first call, or a non-positive delta).
func (s *Stepper) Step() (elapsed time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Ticks()
	prev, have := s.prev, s.have
	s.prev, s.have = now, true
	if !have {
		return 0, false
	}

	delta := int32(now - prev)
	if delta <= 0 {
		return 0, false
	}
	elapsed = time.Duration(delta) * s.tick
	if s.max > 0 && elapsed > s.max {
		elapsed = s.max
	}
	return elapsed, true
}
