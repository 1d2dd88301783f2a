// Package kernel defines the solid modelling interface used to turn cells
// into triangle meshes. A cell is an intersection of surface half-spaces,
// so the kernel needs half-spaces, a clipping box and boolean operations.
// Implementations (sdfx) provide them behind this interface.
package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/mcgeometry/pkg/surface"
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box. Unbounded solids
	// report infinite extents.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(min, max v3.Vec) Solid
	// HalfSpace is the set of points on the given side of s: where
	// s.IsPositive holds when positive is true, and where it fails
	// otherwise. It is unbounded in general.
	HalfSpace(s surface.Surface, positive bool) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Mesh output. The solid must be bounded.
	ToMesh(s Solid) (*Mesh, error)
}
