// Package trigger turns visibility signals into "load one more page" calls.
//
// A VisibilityTrigger watches a sentinel placed after the last rendered item
// and invokes its callback when the sentinel becomes visible. After a load the
// renderer re-arms the trigger and re-measures the layout; a sentinel that is
// still on screen then fires again until the viewport is filled.
package trigger

import (
	"errors"
	"sync"
)

// ErrUnavailable is returned by Arm when the runtime has no visibility
// primitive. Callers fall back to an explicit trigger.
var ErrUnavailable = errors.New("visibility trigger unavailable")

// VisibilityTrigger is the capability interface for continuation signals.
type VisibilityTrigger interface {
	// Arm starts observing and calls onVisible on each firing.
	Arm(onVisible func()) error

	// Rearm re-evaluates the observation after the list has grown. A trigger
	// backed by layout waits for the next visibility report.
	Rearm()

	// Disarm stops observing. Safe to call more than once.
	Disarm()
}

// Sentinel is driven by a renderer that reports whether the sentinel row is
// inside the viewport. It fires on every not-visible to visible transition.
// Rearm marks the observation pending; the next Report settles it and fires
// if the sentinel is still visible in the new layout.
type Sentinel struct {
	mu      sync.Mutex
	fn      func()
	armed   bool
	visible bool
	pending bool
}

// NewSentinel creates an unarmed sentinel.
func NewSentinel() *Sentinel {
	return &Sentinel{}
}

// Arm implements VisibilityTrigger.
func (s *Sentinel) Arm(onVisible func()) error {
	if onVisible == nil {
		return errors.New("callback is required")
	}

	s.mu.Lock()
	s.fn = onVisible
	s.armed = true
	visible := s.visible
	s.mu.Unlock()

	if visible {
		go onVisible()
	}
	return nil
}

// Report records the sentinel's visibility.
func (s *Sentinel) Report(visible bool) {
	s.mu.Lock()
	fire := s.armed && visible && (!s.visible || s.pending)
	s.visible = visible
	s.pending = false
	fn := s.fn
	s.mu.Unlock()

	if fire {
		go fn()
	}
}

// Visible returns the last reported visibility.
func (s *Sentinel) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Rearm implements VisibilityTrigger. The cached visibility predates the
// load, so nothing fires until the renderer reports again.
func (s *Sentinel) Rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		s.pending = true
	}
}

// Pending reports whether a Rearm is waiting for the next Report.
func (s *Sentinel) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Disarm implements VisibilityTrigger.
func (s *Sentinel) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
	s.pending = false
	s.fn = nil
}

// Manual is an explicit "load more" control.
type Manual struct {
	mu sync.Mutex
	fn func()
}

// NewManual creates an unarmed manual trigger.
func NewManual() *Manual {
	return &Manual{}
}

// Arm implements VisibilityTrigger.
func (m *Manual) Arm(onVisible func()) error {
	if onVisible == nil {
		return errors.New("callback is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = onVisible
	return nil
}

// Fire invokes the callback synchronously. Returns false when unarmed.
func (m *Manual) Fire() bool {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Rearm is a no-op; a manual trigger only fires on request.
func (m *Manual) Rearm() {}

// Disarm implements VisibilityTrigger.
func (m *Manual) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = nil
}

// Unavailable stands in where no visibility primitive exists, such as
// non-interactive output.
type Unavailable struct{}

// Arm always fails with ErrUnavailable.
func (Unavailable) Arm(func()) error { return ErrUnavailable }

// Rearm does nothing.
func (Unavailable) Rearm() {}

// Disarm does nothing.
func (Unavailable) Disarm() {}
