package exercise

import (
	"math"
	"time"

	"github.com/andresmejia3/reptrack/internal/geometry"
	"github.com/andresmejia3/reptrack/internal/pose"
	"github.com/google/uuid"
)

// Session is one continuous tracking run for a single exercise. It is owned
// by the frame loop and is not safe for concurrent use.
type Session struct {
	ID        string
	Variant   Variant
	StartTime time.Time

	state         State
	lastAngle     float64
	minVisibility float64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMinVisibility treats landmarks whose visibility is below v as missing.
func WithMinVisibility(v float64) SessionOption {
	return func(s *Session) {
		s.minVisibility = v
	}
}

// WithID overrides the generated session ID.
func WithID(id string) SessionOption {
	return func(s *Session) {
		s.ID = id
	}
}

// NewSession starts a session at start with stage undefined and no reps.
func NewSession(v Variant, start time.Time, opts ...SessionOption) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Variant:   v,
		StartTime: start,
		lastAngle: math.NaN(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current stage and counter.
func (s *Session) State() State {
	return s.state
}

// Stage returns the current latch value.
func (s *Session) Stage() Stage {
	return s.state.Stage
}

// Counter returns the reps counted so far.
func (s *Session) Counter() int {
	return s.state.Counter
}

// LastAngle returns the most recent joint angle, NaN before any was measured.
func (s *Session) LastAngle() float64 {
	return s.lastAngle
}

// Update feeds one frame of landmarks and reports whether it completed a rep.
// A frame that lacks any of the variant's three landmarks leaves the session
// untouched.
func (s *Session) Update(frame pose.Frame) bool {
	j := s.Variant.Joints
	a, ok := frame.Point(j.Proximal, s.minVisibility)
	if !ok {
		return false
	}
	b, ok := frame.Point(j.Joint, s.minVisibility)
	if !ok {
		return false
	}
	c, ok := frame.Point(j.Distal, s.minVisibility)
	if !ok {
		return false
	}
	return s.Observe(geometry.AngleAt(a, b, c))
}

// Observe feeds one joint angle in degrees and reports whether it completed a rep.
func (s *Session) Observe(angle float64) bool {
	s.lastAngle = angle
	before := s.state.Counter
	s.state = s.Variant.Step(s.state, angle)
	return s.state.Counter > before
}
