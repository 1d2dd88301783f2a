// Package geometry holds the surface registry and cell table of a CSG
// geometry and answers the two queries a transport code needs: which cell
// contains a point, and where a ray leaves its cell.
//
// Surfaces and cells are identified by 1-based indices in insertion order.
// A cell is a list of signed surface indices: +s means the positive side
// of surface s, -s the negative side, and the cell is the intersection of
// those half-spaces.
//
// A Geometry is built by a single goroutine (AddSurface, AddRegion,
// SetDeadRegion) and then frozen. Queries never mutate it, so a frozen
// Geometry may be shared by any number of goroutines without locking.
package geometry

import (
	"github.com/chazu/mcgeometry/pkg/contract"
	"github.com/chazu/mcgeometry/pkg/surface"
)

// Policy selects which of a cell's surfaces Intercept reports.
type Policy int

const (
	// FirstHit reports the first surface in the cell's list that the ray
	// crosses. It is exact only for cells with at most one forward
	// crossing per ray, such as convex cells.
	FirstHit Policy = iota
	// NearestHit reports the closest crossing over all of the cell's
	// surfaces.
	NearestHit
)

func (p Policy) String() string {
	switch p {
	case FirstHit:
		return "first-hit"
	case NearestHit:
		return "nearest-hit"
	default:
		return "unknown"
	}
}

// ParsePolicy maps "first-hit" or "nearest-hit" to a Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "first-hit", "first":
		return FirstHit, true
	case "nearest-hit", "nearest":
		return NearestHit, true
	}
	return FirstHit, false
}

// Option configures a Geometry.
type Option func(*Geometry)

// WithPolicy sets the intercept policy. The default is FirstHit.
func WithPolicy(p Policy) Option {
	return func(g *Geometry) { g.policy = p }
}

// SurfaceOption configures a surface as it is registered.
type SurfaceOption func(*surfaceEntry)

// Reflecting marks a surface as a mirror: rays hitting it stay in their
// cell instead of crossing into a neighbor.
func Reflecting() SurfaceOption {
	return func(e *surfaceEntry) { e.reflecting = true }
}

type surfaceEntry struct {
	surface    surface.Surface
	reflecting bool
}

// Geometry is a surface registry plus a region table.
type Geometry struct {
	surfaces []surfaceEntry
	regions  [][]int
	dead     int // 1-based dead region, 0 when unset
	policy   Policy
	frozen   bool
}

// New creates an empty geometry.
func New(opts ...Option) *Geometry {
	g := &Geometry{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Policy returns the intercept policy.
func (g *Geometry) Policy() Policy { return g.policy }

// SetPolicy changes the intercept policy during setup.
func (g *Geometry) SetPolicy(p Policy) {
	g.requireMutable("geometry.SetPolicy")
	g.policy = p
}

// Freeze ends the setup phase. Any later mutation is a contract violation.
func (g *Geometry) Freeze() { g.frozen = true }

// Frozen reports whether Freeze has been called.
func (g *Geometry) Frozen() bool { return g.frozen }

func (g *Geometry) requireMutable(op string) {
	if g.frozen {
		contract.Fail(op, "geometry is frozen")
	}
}

// ---------------------------------------------------------------------------
// Surface registry
// ---------------------------------------------------------------------------

// AddSurface registers s and returns its 1-based index.
func (g *Geometry) AddSurface(s surface.Surface, opts ...SurfaceOption) int {
	g.requireMutable("geometry.AddSurface")
	if s == nil {
		contract.Fail("geometry.AddSurface", "nil surface")
	}

	e := surfaceEntry{surface: s}
	for _, opt := range opts {
		opt(&e)
	}
	g.surfaces = append(g.surfaces, e)
	return len(g.surfaces)
}

// Surface returns the surface with the given 1-based index.
func (g *Geometry) Surface(index int) surface.Surface {
	return g.surfaceEntry("geometry.Surface", index).surface
}

// IsReflecting reports whether the surface with the given index is a mirror.
func (g *Geometry) IsReflecting(index int) bool {
	return g.surfaceEntry("geometry.IsReflecting", index).reflecting
}

// SurfaceCount returns the number of registered surfaces.
func (g *Geometry) SurfaceCount() int { return len(g.surfaces) }

func (g *Geometry) surfaceEntry(op string, index int) *surfaceEntry {
	if index < 1 || index > len(g.surfaces) {
		contract.Fail(op, "surface index %d out of range [1, %d]", index, len(g.surfaces))
	}
	return &g.surfaces[index-1]
}

// ---------------------------------------------------------------------------
// Region table
// ---------------------------------------------------------------------------

// AddRegion appends a cell bounded by the given signed surface indices and
// returns its 1-based index. Every index must name a registered surface.
func (g *Geometry) AddRegion(signed ...int) int {
	g.requireMutable("geometry.AddRegion")
	for i, s := range signed {
		if s == 0 || abs(s) > len(g.surfaces) {
			contract.Fail("geometry.AddRegion",
				"entry %d: signed surface index %d out of range [1, %d]", i, s, len(g.surfaces))
		}
	}

	region := make([]int, len(signed))
	copy(region, signed)
	g.regions = append(g.regions, region)
	return len(g.regions)
}

// Region returns a copy of the signed surface list of a cell.
func (g *Geometry) Region(cell int) []int {
	r := g.region("geometry.Region", cell)
	out := make([]int, len(r))
	copy(out, r)
	return out
}

// RegionCount returns the number of cells.
func (g *Geometry) RegionCount() int { return len(g.regions) }

func (g *Geometry) region(op string, cell int) []int {
	if cell < 1 || cell > len(g.regions) {
		contract.Fail(op, "cell index %d out of range [1, %d]", cell, len(g.regions))
	}
	return g.regions[cell-1]
}

// SetDeadRegion marks a cell as the termination region. It may be called
// once.
func (g *Geometry) SetDeadRegion(cell int) {
	g.requireMutable("geometry.SetDeadRegion")
	g.region("geometry.SetDeadRegion", cell)
	if g.dead != 0 {
		contract.Fail("geometry.SetDeadRegion",
			"dead region already set to %d, cannot set it to %d", g.dead, cell)
	}
	g.dead = cell
}

// DeadRegion returns the dead cell index, or 0 if none was set.
func (g *Geometry) DeadRegion() int { return g.dead }

// IsDeadRegion reports whether cell is the dead region. Any index may be
// passed; unknown indices are simply not dead.
func (g *Geometry) IsDeadRegion(cell int) bool {
	return g.dead != 0 && cell == g.dead
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
