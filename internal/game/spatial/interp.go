package spatial

import (
	"image/color"
	"math"
)

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// LerpVec interpolates each component of a and b.
func LerpVec(a, b Vec2, t float64) Vec2 {
	return Vec2{X: Lerp(a.X, b.X, t), Y: Lerp(a.Y, b.Y, t)}
}

// LerpColor interpolates each channel of a and b. Channels are truncated, not rounded.
func LerpColor(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: lerpByte(a.R, b.R, t),
		G: lerpByte(a.G, b.G, t),
		B: lerpByte(a.B, b.B, t),
		A: lerpByte(a.A, b.A, t),
	}
}

func lerpByte(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}

// Slerp spherically interpolates between two unit vectors.
func Slerp(from, to Vec2, step float64) Vec2 {
	if step == 0 {
		return from
	}
	if from == to || step == 1 {
		return to
	}

	// Clamp guards acos against rounding just outside [-1, 1].
	dot := math.Max(-1, math.Min(1, from.Dot(to)))
	theta := math.Acos(dot)
	if theta == 0 {
		return to
	}

	sinTheta := math.Sin(theta)
	a := math.Sin((1-step)*theta) / sinTheta
	b := math.Sin(step*theta) / sinTheta
	return from.Scale(a).Add(to.Scale(b))
}

// CurveAngle moves the angle from toward to by step.
//
// Both angles are turned into unit direction vectors, the vectors are
// interpolated, and the result is converted back with atan2. This follows the
// shorter arc and never jumps at the ±π seam the way scalar interpolation does.
func CurveAngle(from, to, step float64) float64 {
	if step == 0 {
		return from
	}
	if from == to || step == 1 {
		return to
	}

	fromVec := Vec2{math.Cos(from), math.Sin(from)}
	toVec := Vec2{math.Cos(to), math.Sin(to)}
	cur := LerpVec(fromVec, toVec, step)

	return math.Atan2(cur.Y, cur.X)
}

// NormalizeAngle maps an angle into [-π, π].
func NormalizeAngle(angle float64) float64 {
	const twoPi = 2 * math.Pi
	angle = math.Mod(angle, twoPi)
	if angle < 0 {
		angle += twoPi
	}
	if angle > math.Pi {
		angle -= twoPi
	}
	return angle
}

// DirectionOf returns the unit heading vector for an angle in radians.
func DirectionOf(angle float64) Vec2 {
	return Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
}
