package surface

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ Surface = (*Plane)(nil)
	_ Surface = (*AxisPlane)(nil)
)

// Plane is an infinite plane through a point. The side the normal points
// into is positive.
type Plane struct {
	normal v3.Vec
	point  v3.Vec
}

// NewPlane creates a plane through point with the given normal. The normal
// is scaled to unit length; a zero normal is an error.
func NewPlane(normal, point v3.Vec) (*Plane, error) {
	n, err := normalize(normal)
	if err != nil {
		return nil, fmt.Errorf("plane: normal: %w", err)
	}
	return &Plane{normal: n, point: point}, nil
}

// Point returns the point the plane was built through.
func (pl *Plane) Point() v3.Vec { return pl.point }

// Kind reports KindPlane.
func (pl *Plane) Kind() Kind { return KindPlane }

// IsPositive reports whether n·(p - p0) > 0.
func (pl *Plane) IsPositive(p v3.Vec) bool {
	return pl.SignedDistance(p) > 0
}

// Intercept finds where a ray from p along d crosses the plane. A ray
// parallel to the plane, or heading away from it, never hits.
func (pl *Plane) Intercept(p, d v3.Vec, positive bool) (bool, float64) {
	requireUnit("surface.Plane.Intercept", d)

	cos := pl.normal.Dot(d)
	return linearIntercept(-pl.SignedDistance(p), cos, positive)
}

// Normal returns the plane normal.
func (pl *Plane) Normal(v3.Vec) v3.Vec { return pl.normal }

// SignedDistance returns n·(p - p0).
func (pl *Plane) SignedDistance(p v3.Vec) float64 {
	return pl.normal.Dot(p.Sub(pl.point))
}

func (pl *Plane) String() string {
	return fmt.Sprintf("plane normal=%s point=%s", formatVec(pl.normal), formatVec(pl.point))
}

// linearIntercept solves the plane crossing from the signed offset to the
// plane along its normal and the cosine between normal and direction.
func linearIntercept(offset, cos float64, positive bool) (bool, float64) {
	if (!positive && cos > 0) || (positive && cos < 0) {
		return true, math.Max(0, offset/cos)
	}
	return false, 0
}

// Axis names a coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// component returns the coordinate of v along a.
func (a Axis) component(v v3.Vec) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// unit returns the unit vector along a.
func (a Axis) unit() v3.Vec {
	switch a {
	case AxisX:
		return v3.Vec{X: 1}
	case AxisY:
		return v3.Vec{Y: 1}
	default:
		return v3.Vec{Z: 1}
	}
}

// AxisPlane is the plane where one coordinate equals a constant. Larger
// coordinates are positive.
type AxisPlane struct {
	axis  Axis
	coord float64
}

// NewAxisPlane creates the plane {p : p[axis] = coord}.
func NewAxisPlane(axis Axis, coord float64) (*AxisPlane, error) {
	if axis < AxisX || axis > AxisZ {
		return nil, fmt.Errorf("axis plane: invalid axis %s", axis)
	}
	if math.IsNaN(coord) || math.IsInf(coord, 0) {
		return nil, fmt.Errorf("axis plane: coordinate %g is not finite", coord)
	}
	return &AxisPlane{axis: axis, coord: coord}, nil
}

// Axis returns the plane's normal axis.
func (ap *AxisPlane) Axis() Axis { return ap.axis }

// Coordinate returns the plane's offset along its axis.
func (ap *AxisPlane) Coordinate() float64 { return ap.coord }

// Kind reports KindAxisPlane.
func (ap *AxisPlane) Kind() Kind { return KindAxisPlane }

// IsPositive reports whether p[axis] > coord.
func (ap *AxisPlane) IsPositive(p v3.Vec) bool {
	return ap.axis.component(p) > ap.coord
}

// Intercept finds where a ray from p along d crosses the plane.
func (ap *AxisPlane) Intercept(p, d v3.Vec, positive bool) (bool, float64) {
	requireUnit("surface.AxisPlane.Intercept", d)

	return linearIntercept(ap.coord-ap.axis.component(p), ap.axis.component(d), positive)
}

// Normal returns the unit vector along the plane's axis.
func (ap *AxisPlane) Normal(v3.Vec) v3.Vec { return ap.axis.unit() }

// SignedDistance returns p[axis] - coord.
func (ap *AxisPlane) SignedDistance(p v3.Vec) float64 {
	return ap.axis.component(p) - ap.coord
}

func (ap *AxisPlane) String() string {
	return fmt.Sprintf("plane %s=%g", ap.axis, ap.coord)
}
