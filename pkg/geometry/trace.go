package geometry

import (
	"math"

	"github.com/chazu/mcgeometry/pkg/contract"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Crossing is the result of Intercept.
type Crossing struct {
	Hit       bool
	NewCell   int     // cell on the far side, 0 on a miss
	Surface   int     // absolute index of the crossed surface, 0 on a miss
	Sense     int     // +1 or -1: the side of Surface the ray started on
	Distance  float64 // +Inf on a miss
	Reflected bool    // Surface is a mirror and NewCell is the starting cell
}

// Intercept traces a ray from p along the unit vector d out of cell and
// reports the boundary it crosses and the cell beyond.
//
// Under FirstHit the cell's surfaces are tried in list order and the first
// crossing wins. Under NearestHit the closest crossing wins, ties going to
// the earlier surface. When no surface is crossed the result has
// Hit == false and Distance == +Inf.
//
// The far cell is the unique cell listing the crossed surface with the
// opposite sense. Finding none or more than one panics: that boundary is
// shared in a way this resolution cannot describe. A mirror surface skips
// the search and keeps the ray in cell.
func (g *Geometry) Intercept(cell int, p, d v3.Vec) Crossing {
	region := g.region("geometry.Intercept", cell)

	signed, dist := 0, math.Inf(1)
	for _, s := range region {
		hit, t := g.surfaces[abs(s)-1].surface.Intercept(p, d, s > 0)
		if !hit {
			continue
		}
		if g.policy == FirstHit {
			signed, dist = s, t
			break
		}
		if t < dist {
			signed, dist = s, t
		}
	}
	if signed == 0 {
		return Crossing{Distance: math.Inf(1)}
	}

	c := Crossing{
		Hit:      true,
		Surface:  abs(signed),
		Sense:    sign(signed),
		Distance: dist,
	}
	if g.surfaces[c.Surface-1].reflecting {
		c.NewCell = cell
		c.Reflected = true
		return c
	}
	c.NewCell = g.neighbor("geometry.Intercept", signed)
	return c
}

// neighbor returns the only cell containing -signed.
func (g *Geometry) neighbor(op string, signed int) int {
	cell, count := g.listing(-signed)
	if count != 1 {
		contract.Fail(op, "geometry too complex: %d cells border surface %d on the %s side, want exactly 1",
			count, abs(signed), senseName(-signed))
	}
	return cell
}

// listing counts the cells whose list contains signed and returns the
// last of them.
func (g *Geometry) listing(signed int) (cell, count int) {
	for i, r := range g.regions {
		for _, s := range r {
			if s == signed {
				cell = i + 1
				count++
				break
			}
		}
	}
	return cell, count
}

func sign(x int) int {
	if x < 0 {
		return -1
	}
	return 1
}

func senseName(signed int) string {
	if signed < 0 {
		return "negative"
	}
	return "positive"
}
