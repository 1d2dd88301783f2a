package geometry

import (
	"fmt"
	"io"
	"strings"
)

// Neighbors maps each boundary surface of cell to the cell across it, or
// to 0 where the boundary is not shared with exactly one cell. Mirror
// surfaces map to cell itself.
func (g *Geometry) Neighbors(cell int) map[int]int {
	region := g.region("geometry.Neighbors", cell)
	out := make(map[int]int, len(region))
	for _, s := range region {
		switch {
		case g.surfaces[abs(s)-1].reflecting:
			out[abs(s)] = cell
		default:
			out[abs(s)] = g.borderingCell(s)
		}
	}
	return out
}

// borderingCell is neighbor without the contract check.
func (g *Geometry) borderingCell(signed int) int {
	cell, count := g.listing(-signed)
	if count != 1 {
		return 0
	}
	return cell
}

// Describe writes a listing of every surface and cell to w.
func (g *Geometry) Describe(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "surfaces: %d\n", len(g.surfaces))
	for i, e := range g.surfaces {
		fmt.Fprintf(&b, "  %3d  %s", i+1, e.surface)
		if e.reflecting {
			b.WriteString("  [reflecting]")
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "cells: %d (policy %s)\n", len(g.regions), g.policy)
	for i, r := range g.regions {
		fmt.Fprintf(&b, "  %3d  %s", i+1, FormatRegion(r))
		if g.dead == i+1 {
			b.WriteString("  [dead]")
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatRegion renders a signed surface list as "{-1 +2}".
func FormatRegion(signed []int) string {
	parts := make([]string, len(signed))
	for i, s := range signed {
		parts[i] = fmt.Sprintf("%+d", s)
	}
	return "{" + strings.Join(parts, " ") + "}"
}
