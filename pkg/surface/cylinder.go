package surface

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ Surface = (*Cylinder)(nil)

// Cylinder is an infinite circular cylinder around an axis line. Its
// outside is the positive side.
type Cylinder struct {
	point  v3.Vec // any point on the axis
	axis   v3.Vec // unit
	radius float64
}

// NewCylinder creates a cylinder of the given radius around the line
// through point along axis. The axis is scaled to unit length.
func NewCylinder(point, axis v3.Vec, radius float64) (*Cylinder, error) {
	if !(radius > 0) {
		return nil, fmt.Errorf("cylinder: radius %g must be positive", radius)
	}
	u, err := normalize(axis)
	if err != nil {
		return nil, fmt.Errorf("cylinder: axis: %w", err)
	}
	return &Cylinder{point: point, axis: u, radius: radius}, nil
}

// Point returns the axis point the cylinder was built through.
func (c *Cylinder) Point() v3.Vec { return c.point }

// Axis returns the unit axis direction.
func (c *Cylinder) Axis() v3.Vec { return c.axis }

// Radius returns the cylinder radius.
func (c *Cylinder) Radius() float64 { return c.radius }

// Kind reports KindCylinder.
func (c *Cylinder) Kind() Kind { return KindCylinder }

// radial returns the component of p - point perpendicular to the axis.
func (c *Cylinder) radial(p v3.Vec) v3.Vec {
	q := p.Sub(c.point)
	return q.Sub(c.axis.MulScalar(q.Dot(c.axis)))
}

// IsPositive reports whether p is strictly outside the cylinder.
func (c *Cylinder) IsPositive(p v3.Vec) bool {
	r := c.radial(p)
	return r.Dot(r) > c.radius*c.radius
}

// Intercept finds where a ray from p along d crosses the cylinder. A ray
// parallel to the axis never hits.
func (c *Cylinder) Intercept(p, d v3.Vec, positive bool) (bool, float64) {
	requireUnit("surface.Cylinder.Intercept", d)

	du := d.Dot(c.axis)
	r := c.radial(p)
	a := 1 - du*du
	b := d.Dot(r)
	cc := r.Dot(r) - c.radius*c.radius
	return EvalQuadric(a, b, cc, positive)
}

// Normal returns the outward unit normal at p.
func (c *Cylinder) Normal(p v3.Vec) v3.Vec {
	n, err := normalize(c.radial(p))
	if err != nil {
		// Points on the axis have no defined normal.
		return perpendicular(c.axis)
	}
	return n
}

// SignedDistance returns the distance from the axis minus the radius.
func (c *Cylinder) SignedDistance(p v3.Vec) float64 {
	return c.radial(p).Length() - c.radius
}

func (c *Cylinder) String() string {
	return fmt.Sprintf("cylinder point=%s axis=%s radius=%g",
		formatVec(c.point), formatVec(c.axis), c.radius)
}

// perpendicular returns some unit vector orthogonal to the unit vector u.
func perpendicular(u v3.Vec) v3.Vec {
	ref := v3.Vec{X: 1}
	if u.X > 0.9 || u.X < -0.9 {
		ref = v3.Vec{Y: 1}
	}
	p := ref.Sub(u.MulScalar(ref.Dot(u)))
	return p.MulScalar(1 / p.Length())
}
