// Package geometry holds the joint-angle math used by the rep counter.
package geometry

import "math"

// Point is a 2-D landmark position in image-plane coordinates.
type Point struct {
	X float64
	Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// AngleAt returns the unsigned interior angle at b, in degrees, between the
// rays b->a and b->c. The result is folded into [0, 180].
//
// Degenerate input (a == b or c == b) has no defined angle and yields NaN, as
// does any non-finite coordinate. Callers check the result with IsValidAngle.
func AngleAt(a, b, c Point) float64 {
	ba := a.Sub(b)
	bc := c.Sub(b)
	if (ba.X == 0 && ba.Y == 0) || (bc.X == 0 && bc.Y == 0) {
		return math.NaN()
	}

	radians := math.Atan2(bc.Y, bc.X) - math.Atan2(ba.Y, ba.X)
	angle := math.Abs(radians * 180.0 / math.Pi)
	if angle > 180 {
		angle = 360 - angle
	}
	return angle
}

// IsValidAngle reports whether deg is a finite angle inside [0, 180].
func IsValidAngle(deg float64) bool {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return false
	}
	return deg >= 0 && deg <= 180
}
