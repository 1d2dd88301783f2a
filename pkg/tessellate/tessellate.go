// Package tessellate turns the cells of a geometry into triangle meshes
// using a geometry kernel. One mesh is produced per cell.
package tessellate

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/mcgeometry/pkg/geometry"
	"github.com/chazu/mcgeometry/pkg/kernel"
)

// Options selects what to tessellate.
type Options struct {
	// Bound is the half-width of the box, centered on the origin, that
	// clips every cell. Cells are often unbounded, such as the outside of
	// a sphere, so a finite box is always required.
	Bound float64
	// Cells restricts output to the listed cells. Empty means every cell
	// except the dead region.
	Cells []int
	// KeepEmpty includes cells that produce no triangles.
	KeepEmpty bool
}

// CellSolid builds the solid of one cell: the intersection of its
// half-spaces, clipped to the box [-bound, bound] on every axis.
func CellSolid(g *geometry.Geometry, k kernel.Kernel, cell int, bound float64) (kernel.Solid, error) {
	if !(bound > 0) {
		return nil, fmt.Errorf("tessellate: bound %g must be positive", bound)
	}
	if cell < 1 || cell > g.RegionCount() {
		return nil, fmt.Errorf("tessellate: no cell %d", cell)
	}

	solid := k.Box(
		v3.Vec{X: -bound, Y: -bound, Z: -bound},
		v3.Vec{X: bound, Y: bound, Z: bound},
	)
	for _, signed := range g.Region(cell) {
		s := signed
		if s < 0 {
			s = -s
		}
		solid = k.Intersection(solid, k.HalfSpace(g.Surface(s), signed > 0))
	}
	return solid, nil
}

// Tessellate produces one triangle mesh per selected cell. The tessellator
// is read-only and never mutates the geometry.
func Tessellate(g *geometry.Geometry, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if g == nil {
		return nil, nil
	}

	cells := opts.Cells
	if len(cells) == 0 {
		for c := 1; c <= g.RegionCount(); c++ {
			if !g.IsDeadRegion(c) {
				cells = append(cells, c)
			}
		}
	}

	var meshes []*kernel.Mesh
	for _, c := range cells {
		solid, err := CellSolid(g, k, c, opts.Bound)
		if err != nil {
			return nil, err
		}
		mesh, err := k.ToMesh(solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for cell %d: %w", c, err)
		}
		if mesh.IsEmpty() && !opts.KeepEmpty {
			continue
		}
		mesh.Cell = c
		mesh.Name = fmt.Sprintf("cell %d %s", c, geometry.FormatRegion(g.Region(c)))
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
