// Package pose describes the per-frame output of the external pose estimator
// and the narrow interface the rep counter consumes it through.
package pose

import (
	"context"

	"github.com/andresmejia3/reptrack/internal/geometry"
)

// LandmarkID follows the MediaPipe Pose 33-point numbering.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
type LandmarkID uint8

const (
	Nose LandmarkID = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	NumLandmarks = 33
)

var landmarkNames = [NumLandmarks]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer", "left_ear", "right_ear",
	"mouth_left", "mouth_right", "left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow", "left_wrist", "right_wrist",
	"left_pinky", "right_pinky", "left_index", "right_index",
	"left_thumb", "right_thumb", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
	"left_heel", "right_heel", "left_foot_index", "right_foot_index",
}

func (id LandmarkID) String() string {
	if int(id) < NumLandmarks {
		return landmarkNames[id]
	}
	return "unknown"
}

// Valid reports whether id is inside the 33-point model.
func (id LandmarkID) Valid() bool {
	return int(id) < NumLandmarks
}

// Landmark is one estimated keypoint. X and Y are normalized to [0,1] of the
// image; Z is relative depth and Visibility the model's confidence.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Frame is the landmark set detected on one image. A nil or empty Frame means
// nobody was detected.
type Frame map[LandmarkID]Landmark

// Point resolves id to a 2-D point. It reports false when the landmark is
// missing or its visibility is below minVisibility. A minVisibility of 0
// accepts every landmark the estimator returned.
func (f Frame) Point(id LandmarkID, minVisibility float64) (geometry.Point, bool) {
	lm, ok := f[id]
	if !ok {
		return geometry.Point{}, false
	}
	if minVisibility > 0 && lm.Visibility < minVisibility {
		return geometry.Point{}, false
	}
	return geometry.Point{X: lm.X, Y: lm.Y}, true
}

// Estimator turns an encoded image into landmarks. Implementations must
// return an empty Frame, not an error, when nobody is in view.
type Estimator interface {
	Estimate(ctx context.Context, jpeg []byte) (Frame, error)
	Close() error
}
