// Package exercise turns a stream of joint angles into repetition counts.
//
// Every supported exercise is one row of a declarative table: which three
// landmarks form the measured joint, which way the rep starts (extended or
// flexed), the arm and fire thresholds, and reporting constants. A single
// transition function interprets any row.
package exercise

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andresmejia3/reptrack/internal/pose"
)

// ErrUnknownExercise is returned by Lookup for keys outside the supported set.
var ErrUnknownExercise = errors.New("unknown exercise")

// Polarity says which end of the range of motion arms the latch.
type Polarity int

const (
	// ExtensionFirst arms on a large angle and fires on a small one.
	ExtensionFirst Polarity = iota
	// FlexionFirst arms on a small angle and fires on a large one.
	FlexionFirst
)

func (p Polarity) String() string {
	switch p {
	case ExtensionFirst:
		return "extension-first"
	case FlexionFirst:
		return "flexion-first"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// Bound is one angle threshold in degrees.
type Bound struct {
	Degrees   float64
	Inclusive bool
}

func (b Bound) above(angle float64) bool {
	if b.Inclusive {
		return angle >= b.Degrees
	}
	return angle > b.Degrees
}

func (b Bound) below(angle float64) bool {
	if b.Inclusive {
		return angle <= b.Degrees
	}
	return angle < b.Degrees
}

func (b Bound) render(op string) string {
	if b.Inclusive {
		op += "="
	}
	return fmt.Sprintf("%s%g", op, b.Degrees)
}

// JointTriple names the landmarks whose angle is measured at Joint.
type JointTriple struct {
	Proximal pose.LandmarkID
	Joint    pose.LandmarkID
	Distal   pose.LandmarkID
}

// Variant is one supported exercise.
type Variant struct {
	Key               string
	Name              string
	Joints            JointTriple
	Polarity          Polarity
	Arm               Bound
	Fire              Bound
	CaloriesPerMinute float64
	// WeightPerRepKg is the assumed load per rep; zero means no weight is reported.
	WeightPerRepKg int
	// ArmedLabel and TriggeredLabel are what the live display prints for each stage.
	ArmedLabel     string
	TriggeredLabel string
}

var (
	leftArm  = JointTriple{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist}
	rightArm = JointTriple{pose.RightShoulder, pose.RightElbow, pose.RightWrist}
)

var (
	PushUp = Variant{
		Key:               "pushup",
		Name:              "Push-up",
		Joints:            leftArm,
		Polarity:          ExtensionFirst,
		Arm:               Bound{Degrees: 160, Inclusive: true},
		Fire:              Bound{Degrees: 90},
		CaloriesPerMinute: 8,
		ArmedLabel:        "up",
		TriggeredLabel:    "down",
	}
	DumbbellLift = Variant{
		Key:               "dumbbell",
		Name:              "Dumbbell Lift",
		Joints:            rightArm,
		Polarity:          FlexionFirst,
		Arm:               Bound{Degrees: 30},
		Fire:              Bound{Degrees: 150},
		CaloriesPerMinute: 6,
		WeightPerRepKg:    10,
		ArmedLabel:        "down",
		TriggeredLabel:    "up",
	}
	BicepCurl = Variant{
		Key:               "bicep",
		Name:              "Bicep Curl",
		Joints:            rightArm,
		Polarity:          ExtensionFirst,
		Arm:               Bound{Degrees: 160, Inclusive: true},
		Fire:              Bound{Degrees: 50},
		CaloriesPerMinute: 5,
		ArmedLabel:        "down",
		TriggeredLabel:    "up",
	}
	TricepExtension = Variant{
		Key:               "tricep",
		Name:              "Tricep Extension",
		Joints:            rightArm,
		Polarity:          FlexionFirst,
		Arm:               Bound{Degrees: 30},
		Fire:              Bound{Degrees: 150},
		CaloriesPerMinute: 5,
		ArmedLabel:        "up",
		TriggeredLabel:    "down",
	}
)

var variants = []Variant{PushUp, DumbbellLift, BicepCurl, TricepExtension}

// Variants returns the supported exercises in display order.
func Variants() []Variant {
	out := make([]Variant, len(variants))
	copy(out, variants)
	return out
}

// Keys returns the exercise keys accepted by Lookup.
func Keys() []string {
	keys := make([]string, len(variants))
	for i, v := range variants {
		keys[i] = v.Key
	}
	return keys
}

// Lookup resolves an exercise key such as "pushup".
func Lookup(key string) (Variant, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, v := range variants {
		if v.Key == k {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w %q (expected one of: %s)", ErrUnknownExercise, key, strings.Join(Keys(), ", "))
}

// armed reports whether angle is in the region that arms the latch.
func (v Variant) armed(angle float64) bool {
	if v.Polarity == FlexionFirst {
		return v.Arm.below(angle)
	}
	return v.Arm.above(angle)
}

// fires reports whether angle is in the region that completes a rep.
func (v Variant) fires(angle float64) bool {
	if v.Polarity == FlexionFirst {
		return v.Fire.above(angle)
	}
	return v.Fire.below(angle)
}

// ArmCondition renders the arm threshold, e.g. ">=160".
func (v Variant) ArmCondition() string {
	if v.Polarity == FlexionFirst {
		return v.Arm.render("<")
	}
	return v.Arm.render(">")
}

// FireCondition renders the fire threshold, e.g. "<90".
func (v Variant) FireCondition() string {
	if v.Polarity == FlexionFirst {
		return v.Fire.render(">")
	}
	return v.Fire.render("<")
}

// StageLabel is the display text for stage, "N/A" before the first arm.
func (v Variant) StageLabel(s Stage) string {
	switch s {
	case StageArmed:
		return v.ArmedLabel
	case StageTriggered:
		return v.TriggeredLabel
	default:
		return "N/A"
	}
}
