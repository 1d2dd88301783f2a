package geometry

import v3 "github.com/deadsy/sdfx/vec/v3"

// Unclassified is returned by CellFromPoint for a point outside every cell.
const Unclassified = 0

// CellFromPoint returns the first cell, in insertion order, that contains
// p, or Unclassified when no cell does. Overlapping cells are resolved by
// that order.
func (g *Geometry) CellFromPoint(p v3.Vec) int {
	for i, r := range g.regions {
		if g.contains(r, p) {
			return i + 1
		}
	}
	return Unclassified
}

// InCell reports whether p satisfies every constraint of cell.
func (g *Geometry) InCell(cell int, p v3.Vec) bool {
	return g.contains(g.region("geometry.InCell", cell), p)
}

func (g *Geometry) contains(region []int, p v3.Vec) bool {
	for _, s := range region {
		if g.surfaces[abs(s)-1].surface.IsPositive(p) != (s > 0) {
			return false
		}
	}
	return true
}
