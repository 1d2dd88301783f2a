// Package surface defines the geometric primitives that bound cells.
//
// Every surface splits space into a positive and a negative side and can
// report where a ray starting on a known side crosses it. Quadric variants
// (sphere, cylinder) reduce the crossing to EvalQuadric; planes solve the
// linear case directly.
package surface

import (
	"fmt"
	"math"

	"github.com/chazu/mcgeometry/pkg/contract"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind enumerates the surface variants.
type Kind int

const (
	KindSphere    Kind = iota // center and radius
	KindPlane                 // arbitrary unit normal through a point
	KindAxisPlane             // plane normal to a coordinate axis
	KindCylinder              // infinite cylinder around an arbitrary axis
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindPlane:
		return "plane"
	case KindAxisPlane:
		return "axis-plane"
	case KindCylinder:
		return "cylinder"
	default:
		return "unknown"
	}
}

// Surface is a boundary between a positive and a negative half-space.
// Implementations are immutable and safe for concurrent use.
type Surface interface {
	// Kind reports the variant.
	Kind() Kind

	// IsPositive reports whether p lies strictly on the positive side.
	// Points exactly on the surface are not positive.
	IsPositive(p v3.Vec) bool

	// Intercept reports whether a ray from p along the unit vector d
	// crosses the surface, and the nonnegative distance to the crossing.
	// positive is the side p is currently on. A non-unit d panics.
	Intercept(p, d v3.Vec, positive bool) (hit bool, distance float64)

	// Normal returns the outward (positive-pointing) unit normal at a
	// point on the surface.
	Normal(p v3.Vec) v3.Vec

	// SignedDistance approximates the distance from p to the surface,
	// negative on the negative side.
	SignedDistance(p v3.Vec) float64

	fmt.Stringer
}

// UnitTolerance bounds how far |d| may stray from 1 in Intercept.
const UnitTolerance = 1e-10

// IsUnit reports whether d has unit length within UnitTolerance.
func IsUnit(d v3.Vec) bool {
	return math.Abs(d.Length()-1) <= UnitTolerance
}

// requireUnit panics when d is not a unit vector.
func requireUnit(op string, d v3.Vec) {
	if !IsUnit(d) {
		contract.Fail(op, "direction %s is not a unit vector (|d| = %.17g)", formatVec(d), d.Length())
	}
}

// normalize returns d scaled to unit length, or an error for a zero vector.
func normalize(d v3.Vec) (v3.Vec, error) {
	l := d.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return v3.Vec{}, fmt.Errorf("cannot normalize vector %s", formatVec(d))
	}
	return d.MulScalar(1 / l), nil
}

func formatVec(v v3.Vec) string {
	return fmt.Sprintf("(%g %g %g)", v.X, v.Y, v.Z)
}
