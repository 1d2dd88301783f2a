// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/mcgeometry/pkg/kernel"
	"github.com/chazu/mcgeometry/pkg/surface"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along
// the longest side of the mesh bounding box.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 together with the box it is known to fit in.
// sdfx derives boxes for its own primitives, but half-spaces are unbounded
// and the boolean operations need their boxes combined explicitly.
type sdfxSolid struct {
	s  sdf.SDF3
	bb sdf.Box3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	min = [3]float64{s.bb.Min.X, s.bb.Min.Y, s.bb.Min.Z}
	max = [3]float64{s.bb.Max.X, s.bb.Max.Y, s.bb.Max.Z}
	return min, max
}

// bounded presents an SDF3 with an overridden bounding box to the renderer.
type bounded struct {
	sdf.SDF3
	bb sdf.Box3
}

func (b bounded) BoundingBox() sdf.Box3 { return b.bb }

// halfSpace is the SDF3 of one side of a surface. Surface signed distances
// are positive on the positive side, and SDF3 values are negative inside
// the solid.
type halfSpace struct {
	s    surface.Surface
	sign float64
}

func (h halfSpace) Evaluate(p v3.Vec) float64 {
	return h.sign * h.s.SignedDistance(p)
}

func (h halfSpace) BoundingBox() sdf.Box3 { return infiniteBox() }

func infiniteBox() sdf.Box3 {
	inf := math.Inf(1)
	return sdf.Box3{
		Min: v3.Vec{X: -inf, Y: -inf, Z: -inf},
		Max: v3.Vec{X: inf, Y: inf, Z: inf},
	}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a kernel meshing with the given marching cubes resolution.
// Zero or negative means DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// unwrap extracts the underlying solid from a kernel.Solid.
func unwrap(s kernel.Solid) *sdfxSolid {
	return s.(*sdfxSolid)
}

// Box creates the axis-aligned box spanning min to max.
// sdf.Box3D centers the box at the origin, so it is translated to the
// midpoint of the corners.
func (k *SdfxKernel) Box(min, max v3.Vec) kernel.Solid {
	size := max.Sub(min)
	s, err := sdf.Box3D(size, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	m := sdf.Translate3d(min.Add(size.MulScalar(0.5)))
	return &sdfxSolid{s: sdf.Transform3D(s, m), bb: sdf.Box3{Min: min, Max: max}}
}

// HalfSpace returns the unbounded solid on one side of s.
func (k *SdfxKernel) HalfSpace(s surface.Surface, positive bool) kernel.Solid {
	h := halfSpace{s: s, sign: 1}
	if positive {
		h.sign = -1
	}
	return &sdfxSolid{s: h, bb: infiniteBox()}
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	return &sdfxSolid{s: sdf.Union3D(sa.s, sb.s), bb: enclose(sa.bb, sb.bb)}
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	return &sdfxSolid{s: sdf.Difference3D(sa.s, sb.s), bb: sa.bb}
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	return &sdfxSolid{s: sdf.Intersect3D(sa.s, sb.s), bb: overlap(sa.bb, sb.bb)}
}

func enclose(a, b sdf.Box3) sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y), Z: math.Min(a.Min.Z, b.Min.Z)},
		Max: v3.Vec{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y), Z: math.Max(a.Max.Z, b.Max.Z)},
	}
}

func overlap(a, b sdf.Box3) sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y), Z: math.Max(a.Min.Z, b.Min.Z)},
		Max: v3.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y), Z: math.Min(a.Max.Z, b.Max.Z)},
	}
}

// ToMesh converts a solid to a triangle mesh using marching cubes. A solid
// whose box is empty yields an empty mesh; an unbounded one is an error.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	solid := unwrap(s)
	bb := solid.bb
	for _, c := range []float64{bb.Min.X, bb.Min.Y, bb.Min.Z, bb.Max.X, bb.Max.Y, bb.Max.Z} {
		if math.IsInf(c, 0) || math.IsNaN(c) {
			return nil, fmt.Errorf("sdfx: cannot mesh an unbounded solid")
		}
	}
	if bb.Min.X >= bb.Max.X || bb.Min.Y >= bb.Max.Y || bb.Min.Z >= bb.Max.Z {
		return &kernel.Mesh{}, nil
	}

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(bounded{SDF3: solid.s, bb: bb}, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
