package surface

import "math"

// EvalQuadric finds the forward crossing of a ray with a quadric surface.
//
// The crossing satisfies A·t² + 2B·t + C = 0 along the ray parameter t,
// where C is the surface function at the ray origin, so its sign tells
// which side the origin is on. positive is that side. Roots that lie
// behind the origin, or that belong to a surface the ray is moving away
// from, are rejected. The returned distance is never negative; it is 0
// when there is no hit.
func EvalQuadric(a, b, c float64, positive bool) (hit bool, distance float64) {
	q := b*b - a*c
	if q < 0 {
		return false, 0
	}
	sq := math.Sqrt(q)

	if !positive {
		// Inside the surface.
		if b <= 0 {
			// Moving away from the near root.
			if a > 0 {
				return true, (sq - b) / a
			}
			return false, 0
		}
		// Moving toward the surface.
		return true, math.Max(0, -c/(sq+b))
	}

	// Outside the surface.
	if b >= 0 {
		// Receding. Only a surface that curves back (A < 0) is reached.
		if a < 0 {
			return true, -(sq + b) / a
		}
		return false, 0
	}
	// Approaching.
	return true, math.Max(0, c/(sq-b))
}
