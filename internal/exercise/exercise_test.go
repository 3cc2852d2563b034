package exercise

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/andresmejia3/reptrack/internal/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameAt builds a frame whose joint angle for v is deg. The joint sits in
// the middle of the image, the proximal point straight above it.
func frameAt(v Variant, deg float64) pose.Frame {
	rad := deg * math.Pi / 180
	return pose.Frame{
		v.Joints.Proximal: {X: 0.5, Y: 0.2, Visibility: 0.99},
		v.Joints.Joint:    {X: 0.5, Y: 0.5, Visibility: 0.99},
		v.Joints.Distal:   {X: 0.5 + 0.3*math.Sin(rad), Y: 0.5 - 0.3*math.Cos(rad), Visibility: 0.99},
	}
}

func observeAll(s *Session, angles ...float64) {
	for _, a := range angles {
		s.Observe(a)
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"pushup", "Push-up"},
		{"dumbbell", "Dumbbell Lift"},
		{"bicep", "Bicep Curl"},
		{"tricep", "Tricep Extension"},
		{" PushUp ", "Push-up"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v, err := Lookup(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Name)
		})
	}

	_, err := Lookup("squat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownExercise))
	assert.Contains(t, err.Error(), "squat")
}

func TestVariantsTable(t *testing.T) {
	vs := Variants()
	require.Len(t, vs, 4)
	assert.Equal(t, []string{"pushup", "dumbbell", "bicep", "tricep"}, Keys())

	// Mutating the returned slice must not leak into the table.
	vs[0].Name = "changed"
	assert.Equal(t, "Push-up", Variants()[0].Name)

	assert.Equal(t, pose.LeftElbow, PushUp.Joints.Joint)
	for _, v := range []Variant{DumbbellLift, BicepCurl, TricepExtension} {
		assert.Equal(t, pose.RightElbow, v.Joints.Joint, v.Key)
	}

	conds := map[string][2]string{
		"pushup":   {">=160", "<90"},
		"dumbbell": {"<30", ">150"},
		"bicep":    {">=160", "<50"},
		"tricep":   {"<30", ">150"},
	}
	for _, v := range vs {
		assert.Equal(t, conds[v.Key][0], v.ArmCondition(), v.Key)
		assert.Equal(t, conds[v.Key][1], v.FireCondition(), v.Key)
	}
}

func TestStep_Boundaries(t *testing.T) {
	tests := []struct {
		name    string
		v       Variant
		from    Stage
		angle   float64
		want    Stage
		counted bool
	}{
		{"pushup arms at exactly 160", PushUp, StageUndefined, 160, StageArmed, false},
		{"pushup does not arm at 159.9", PushUp, StageUndefined, 159.9, StageUndefined, false},
		{"pushup does not fire at exactly 90", PushUp, StageArmed, 90, StageArmed, false},
		{"pushup fires at 89.9", PushUp, StageArmed, 89.9, StageTriggered, true},
		{"dumbbell does not arm at exactly 30", DumbbellLift, StageUndefined, 30, StageUndefined, false},
		{"dumbbell arms at 29.9", DumbbellLift, StageTriggered, 29.9, StageArmed, false},
		{"dumbbell does not fire at exactly 150", DumbbellLift, StageArmed, 150, StageArmed, false},
		{"dumbbell fires at 150.1", DumbbellLift, StageArmed, 150.1, StageTriggered, true},
		{"bicep fires below 50", BicepCurl, StageArmed, 45, StageTriggered, true},
		{"bicep ignores 70 while armed", BicepCurl, StageArmed, 70, StageArmed, false},
		{"tricep fires above 150", TricepExtension, StageArmed, 170, StageTriggered, true},
		{"fire region ignored while triggered", PushUp, StageTriggered, 10, StageTriggered, false},
		{"fire region ignored while undefined", TricepExtension, StageUndefined, 170, StageUndefined, false},
		{"NaN changes nothing", PushUp, StageArmed, math.NaN(), StageArmed, false},
		{"negative angle changes nothing", DumbbellLift, StageUndefined, -5, StageUndefined, false},
		{"angle above 180 changes nothing", PushUp, StageUndefined, 200, StageUndefined, false},
		{"infinity changes nothing", DumbbellLift, StageArmed, math.Inf(1), StageArmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.Step(State{Stage: tt.from, Counter: 3}, tt.angle)
			assert.Equal(t, tt.want, got.Stage)
			if tt.counted {
				assert.Equal(t, 4, got.Counter)
			} else {
				assert.Equal(t, 3, got.Counter)
			}
		})
	}
}

func TestSession_PushUpScenario(t *testing.T) {
	s := NewSession(PushUp, time.Now())
	observeAll(s, 170, 175, 80, 85, 165, 70)

	assert.Equal(t, 2, s.Counter())
	assert.Equal(t, StageTriggered, s.Stage())
}

func TestSession_DumbbellScenario(t *testing.T) {
	s := NewSession(DumbbellLift, time.Now())
	observeAll(s, 20, 160, 25, 155)

	assert.Equal(t, 2, s.Counter())
}

func TestSession_RepeatedCycleCountsTwice(t *testing.T) {
	cycles := map[string][]float64{
		"pushup":   {170, 60},
		"dumbbell": {10, 170},
		"bicep":    {175, 30},
		"tricep":   {15, 165},
	}
	for _, v := range Variants() {
		t.Run(v.Key, func(t *testing.T) {
			s := NewSession(v, time.Now())
			cycle := cycles[v.Key]
			observeAll(s, cycle...)
			observeAll(s, cycle...)
			assert.Equal(t, 2, s.Counter())
		})
	}
}

func TestSession_ArmOnlyNeverCounts(t *testing.T) {
	s := NewSession(PushUp, time.Now())
	observeAll(s, 170, 165, 178, 160, 175)

	assert.Equal(t, 0, s.Counter())
	assert.Equal(t, StageArmed, s.Stage())
}

func TestSession_FireBeforeArmNeverCounts(t *testing.T) {
	s := NewSession(BicepCurl, time.Now())
	observeAll(s, 30, 20, 45)

	assert.Equal(t, 0, s.Counter())
	assert.Equal(t, StageUndefined, s.Stage())
}

func TestSession_CounterMonotonic(t *testing.T) {
	angles := []float64{90, 170, 10, 200, math.NaN(), 165, 40, 100, 180, 0, -1, 179, 1}
	for _, v := range Variants() {
		s := NewSession(v, time.Now())
		prev := 0
		for _, a := range angles {
			counted := s.Observe(a)
			c := s.Counter()
			require.GreaterOrEqual(t, c, prev, "%s counter decreased at angle %v", v.Key, a)
			require.LessOrEqual(t, c-prev, 1)
			assert.Equal(t, c > prev, counted)
			prev = c
		}
	}
}

func TestSession_UpdateFromFrames(t *testing.T) {
	s := NewSession(PushUp, time.Now())

	// A frame where the person is not in view, then a valid push-up.
	assert.False(t, s.Update(pose.Frame{pose.Nose: {X: 0.5, Y: 0.1}}))
	assert.Equal(t, StageUndefined, s.Stage())

	assert.False(t, s.Update(frameAt(PushUp, 170)))
	assert.Equal(t, StageArmed, s.Stage())
	assert.InDelta(t, 170, s.LastAngle(), 1e-6)

	assert.True(t, s.Update(frameAt(PushUp, 80)))
	assert.Equal(t, 1, s.Counter())
	assert.Equal(t, StageTriggered, s.Stage())
}

func TestSession_MissingLandmarkIsNoop(t *testing.T) {
	s := NewSession(DumbbellLift, time.Now())
	s.Update(frameAt(DumbbellLift, 20))
	before := s.State()

	for _, missing := range []pose.LandmarkID{pose.RightShoulder, pose.RightElbow, pose.RightWrist} {
		f := frameAt(DumbbellLift, 170)
		delete(f, missing)
		assert.False(t, s.Update(f))
		assert.Equal(t, before, s.State(), "missing %s", missing)
	}

	assert.False(t, s.Update(nil))
	assert.False(t, s.Update(pose.Frame{}))
	assert.Equal(t, before, s.State())

	// Left arm landmarks do not count for a right arm exercise.
	assert.False(t, s.Update(frameAt(PushUp, 170)))
	assert.Equal(t, before, s.State())
}

func TestSession_DegenerateGeometryIsNoop(t *testing.T) {
	s := NewSession(PushUp, time.Now())
	s.Observe(170)

	f := pose.Frame{
		pose.LeftShoulder: {X: 0.5, Y: 0.5},
		pose.LeftElbow:    {X: 0.5, Y: 0.5},
		pose.LeftWrist:    {X: 0.6, Y: 0.6},
	}
	assert.False(t, s.Update(f))
	assert.Equal(t, State{Stage: StageArmed}, s.State())
	assert.True(t, math.IsNaN(s.LastAngle()))
}

func TestSession_MinVisibility(t *testing.T) {
	s := NewSession(PushUp, time.Now(), WithMinVisibility(0.5))

	f := frameAt(PushUp, 170)
	lm := f[pose.LeftWrist]
	lm.Visibility = 0.2
	f[pose.LeftWrist] = lm

	s.Update(f)
	assert.Equal(t, StageUndefined, s.Stage())

	s.Update(frameAt(PushUp, 170))
	assert.Equal(t, StageArmed, s.Stage())
}

func TestSession_IndependentSessions(t *testing.T) {
	a := NewSession(PushUp, time.Now())
	b := NewSession(PushUp, time.Now())
	observeAll(a, 170, 80)

	assert.Equal(t, 1, a.Counter())
	assert.Equal(t, 0, b.Counter())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCalories(t *testing.T) {
	assert.InDelta(t, 8.0, PushUp.Calories(time.Minute), 1e-9)
	assert.InDelta(t, 9.0, DumbbellLift.Calories(90*time.Second), 1e-9)
	assert.InDelta(t, 2.5, BicepCurl.Calories(30*time.Second), 1e-9)
	assert.InDelta(t, 10.0, TricepExtension.Calories(2*time.Minute), 1e-9)
}

func TestTotalWeight(t *testing.T) {
	kg, ok := DumbbellLift.TotalWeight(7)
	require.True(t, ok)
	assert.Equal(t, 70, kg)

	_, ok = PushUp.TotalWeight(7)
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	s := NewSession(DumbbellLift, start, WithID("sess-1"))
	snap := s.Snapshot(start.Add(2 * time.Minute))
	assert.Equal(t, "sess-1", snap.SessionID)
	assert.Equal(t, "Dumbbell Lift", snap.Exercise)
	assert.Equal(t, "N/A", snap.StageLabel)
	assert.Equal(t, 0, snap.Counter)
	require.NotNil(t, snap.TotalWeightKg)
	assert.Equal(t, 0, *snap.TotalWeightKg)
	// Zero reps still burn calories.
	assert.InDelta(t, 12.0, snap.Calories, 1e-9)

	observeAll(s, 20, 160, 25)
	snap = s.Snapshot(start.Add(time.Minute))
	assert.Equal(t, 1, snap.Counter)
	assert.Equal(t, "down", snap.StageLabel)
	assert.Equal(t, 10, *snap.TotalWeightKg)
	assert.Equal(t, time.Minute, snap.Elapsed)

	p := NewSession(PushUp, start)
	p.Observe(170)
	snap = p.Snapshot(start)
	assert.Equal(t, "up", snap.StageLabel)
	assert.Nil(t, snap.TotalWeightKg)
	assert.Zero(t, snap.Calories)
}

func TestStageLabels(t *testing.T) {
	tests := []struct {
		v                 Variant
		armed, triggered string
	}{
		{PushUp, "up", "down"},
		{DumbbellLift, "down", "up"},
		{BicepCurl, "down", "up"},
		{TricepExtension, "up", "down"},
	}
	for _, tt := range tests {
		assert.Equal(t, "N/A", tt.v.StageLabel(StageUndefined))
		assert.Equal(t, tt.armed, tt.v.StageLabel(StageArmed))
		assert.Equal(t, tt.triggered, tt.v.StageLabel(StageTriggered))
	}
}
