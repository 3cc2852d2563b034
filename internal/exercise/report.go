package exercise

import "time"

// Calories estimates energy burned over elapsed. It scales with time only,
// so a session with no reps still accrues calories.
func (v Variant) Calories(elapsed time.Duration) float64 {
	return elapsed.Minutes() * v.CaloriesPerMinute
}

// TotalWeight is the cumulative load lifted for variants that carry a
// per-rep weight. ok is false for the others.
func (v Variant) TotalWeight(reps int) (kg int, ok bool) {
	if v.WeightPerRepKg == 0 {
		return 0, false
	}
	return reps * v.WeightPerRepKg, true
}

// Snapshot is a read-only view of a session for display.
type Snapshot struct {
	SessionID     string
	Exercise      string
	Stage         Stage
	StageLabel    string
	Counter       int
	TotalWeightKg *int
	Angle         float64
	Elapsed       time.Duration
	Calories      float64
}

// Snapshot captures the session as of now.
func (s *Session) Snapshot(now time.Time) Snapshot {
	elapsed := now.Sub(s.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	snap := Snapshot{
		SessionID:  s.ID,
		Exercise:   s.Variant.Name,
		Stage:      s.state.Stage,
		StageLabel: s.Variant.StageLabel(s.state.Stage),
		Counter:    s.state.Counter,
		Angle:      s.lastAngle,
		Elapsed:    elapsed,
		Calories:   s.Variant.Calories(elapsed),
	}
	if kg, ok := s.Variant.TotalWeight(s.state.Counter); ok {
		snap.TotalWeightKg = &kg
	}
	return snap
}
