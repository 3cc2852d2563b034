package exercise

import "github.com/andresmejia3/reptrack/internal/geometry"

// Stage is the rep latch.
type Stage int

const (
	StageUndefined Stage = iota
	StageArmed
	StageTriggered
)

func (s Stage) String() string {
	switch s {
	case StageArmed:
		return "armed"
	case StageTriggered:
		return "triggered"
	default:
		return "undefined"
	}
}

// State is the mutable part of a tracking session.
type State struct {
	Stage   Stage
	Counter int
}

// Step applies one angle reading to st and returns the next state.
//
// The arm check runs on every frame and may re-arm from any stage. The fire
// check only runs while armed, and a fire increments Counter by one. Angles
// that are not finite or fall outside [0, 180] change nothing.
func (v Variant) Step(st State, angle float64) State {
	if !geometry.IsValidAngle(angle) {
		return st
	}
	if v.armed(angle) {
		st.Stage = StageArmed
	}
	if st.Stage == StageArmed && v.fires(angle) {
		st.Stage = StageTriggered
		st.Counter++
	}
	return st
}
