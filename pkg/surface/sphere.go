package surface

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ Surface = (*Sphere)(nil)

// Sphere is a sphere; its outside is the positive side.
type Sphere struct {
	center v3.Vec
	radius float64
}

// NewSphere creates a sphere. The radius must be positive.
func NewSphere(center v3.Vec, radius float64) (*Sphere, error) {
	if !(radius > 0) {
		return nil, fmt.Errorf("sphere: radius %g must be positive", radius)
	}
	return &Sphere{center: center, radius: radius}, nil
}

// Center returns the sphere center.
func (s *Sphere) Center() v3.Vec { return s.center }

// Radius returns the sphere radius.
func (s *Sphere) Radius() float64 { return s.radius }

// Kind reports KindSphere.
func (s *Sphere) Kind() Kind { return KindSphere }

// IsPositive reports whether p is strictly outside the sphere.
func (s *Sphere) IsPositive(p v3.Vec) bool {
	q := p.Sub(s.center)
	return q.Dot(q) > s.radius*s.radius
}

// Intercept finds where a ray from p along d crosses the sphere.
func (s *Sphere) Intercept(p, d v3.Vec, positive bool) (bool, float64) {
	requireUnit("surface.Sphere.Intercept", d)

	q := p.Sub(s.center)
	b := d.Dot(q)
	c := q.Dot(q) - s.radius*s.radius
	return EvalQuadric(1, b, c, positive)
}

// Normal returns the outward unit normal at p.
func (s *Sphere) Normal(p v3.Vec) v3.Vec {
	n, err := normalize(p.Sub(s.center))
	if err != nil {
		// The center has no defined normal.
		return v3.Vec{X: 1}
	}
	return n
}

// SignedDistance returns |p - center| - radius.
func (s *Sphere) SignedDistance(p v3.Vec) float64 {
	return p.Sub(s.center).Length() - s.radius
}

func (s *Sphere) String() string {
	return fmt.Sprintf("sphere center=%s radius=%g", formatVec(s.center), s.radius)
}
