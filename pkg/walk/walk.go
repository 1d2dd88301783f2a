// Package walk streams particles through a geometry, cell by cell, until
// they reach the dead region. It is a purely geometric driver: there are
// no interactions, only straight flights along optional random
// redirections at boundaries.
package walk

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/chazu/mcgeometry/pkg/contract"
	"github.com/chazu/mcgeometry/pkg/geometry"
	"github.com/chazu/mcgeometry/pkg/logging"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
)

// DefaultMaxSteps bounds a history when Options.MaxSteps is zero.
const DefaultMaxSteps = 10000

// Outcome is how a history ended.
type Outcome int

const (
	Escaped   Outcome = iota // reached the dead region
	Lost                     // started outside every cell, or found no boundary
	Truncated                // hit the step limit
)

func (o Outcome) String() string {
	switch o {
	case Escaped:
		return "escaped"
	case Lost:
		return "lost"
	case Truncated:
		return "truncated"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Step records one flight.
type Step struct {
	From      int     // cell the flight started in
	To        int     // cell entered, equal to From after a reflection
	Surface   int     // boundary crossed
	Distance  float64 // flight length
	Reflected bool
}

// History is the result of following one particle.
type History struct {
	Outcome     Outcome
	Start       int    // starting cell, 0 if unclassified
	Final       int    // last cell, 0 if unclassified
	Position    v3.Vec // final position
	Crossings   int
	Reflections int
	PathLength  float64
	Steps       []Step // only filled when Options.Record is set
}

// Options configures a Walker.
type Options struct {
	// MaxSteps bounds the flights per history. Zero means DefaultMaxSteps.
	MaxSteps int
	// Redirect is the probability of drawing a new isotropic direction
	// after each boundary crossing.
	Redirect float64
	// Workers is the number of goroutines used by Run. Zero means one per
	// CPU.
	Workers int
	// Seed makes Run reproducible: history i uses seed Seed+i.
	Seed int64
	// Record keeps every Step in the History.
	Record bool
	Logger logrus.FieldLogger
}

// Walker follows particles through a frozen geometry. It holds no mutable
// state and may be used from many goroutines.
type Walker struct {
	g    *geometry.Geometry
	opts Options
	log  *logrus.Entry
}

// New returns a walker over g, which must be frozen.
func New(g *geometry.Geometry, opts Options) (*Walker, error) {
	if g == nil {
		return nil, fmt.Errorf("walk: nil geometry")
	}
	if !g.Frozen() {
		return nil, fmt.Errorf("walk: geometry must be frozen before walking")
	}
	if opts.MaxSteps < 0 {
		return nil, fmt.Errorf("walk: max steps %d must not be negative", opts.MaxSteps)
	}
	if opts.MaxSteps == 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Redirect < 0 || opts.Redirect > 1 {
		return nil, fmt.Errorf("walk: redirect probability %g outside [0, 1]", opts.Redirect)
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("walk: workers %d must not be negative", opts.Workers)
	}
	return &Walker{g: g, opts: opts, log: logging.Named(opts.Logger, "walk")}, nil
}

// Stream follows a straight ray from p along the unit vector d, reflecting
// off mirrors, until the dead region, a lost particle, or the step limit.
// Contract violations raised by the geometry are returned as errors.
func (w *Walker) Stream(p, d v3.Vec) (History, error) {
	return w.follow(p, d, nil)
}

// Walk starts a particle at p in an isotropic direction drawn from rng and
// follows it, redirecting after crossings with probability Redirect.
func (w *Walker) Walk(p v3.Vec, rng *rand.Rand) (History, error) {
	return w.follow(p, Isotropic(rng), rng)
}

func (w *Walker) follow(p, d v3.Vec, rng *rand.Rand) (h History, err error) {
	defer contract.Recover(&err)

	cell := w.g.CellFromPoint(p)
	h.Start, h.Final, h.Position = cell, cell, p
	if cell == geometry.Unclassified {
		h.Outcome = Lost
		w.log.WithField("position", fmtVec(p)).Warn("start point is in no cell")
		return h, nil
	}

	for step := 0; ; step++ {
		if w.g.IsDeadRegion(cell) {
			h.Outcome = Escaped
			return h, nil
		}
		if step == w.opts.MaxSteps {
			h.Outcome = Truncated
			w.log.WithFields(logrus.Fields{"cell": cell, "steps": step}).Warn("history truncated")
			return h, nil
		}

		c := w.g.Intercept(cell, p, d)
		if !c.Hit {
			h.Outcome = Lost
			w.log.WithFields(logrus.Fields{
				"cell":      cell,
				"position":  fmtVec(p),
				"direction": fmtVec(d),
			}).Warn("ray leaves cell through no surface")
			return h, nil
		}

		p = p.Add(d.MulScalar(c.Distance))
		h.PathLength += c.Distance
		w.log.WithFields(logrus.Fields{
			"from":     cell,
			"to":       c.NewCell,
			"surface":  c.Surface,
			"distance": c.Distance,
		}).Debug("flight")

		if c.Reflected {
			h.Reflections++
			d = Reflect(d, w.g.Surface(c.Surface).Normal(p))
		} else {
			h.Crossings++
			if rng != nil && w.opts.Redirect > 0 && rng.Float64() < w.opts.Redirect {
				d = Isotropic(rng)
			}
		}
		if w.opts.Record {
			h.Steps = append(h.Steps, Step{
				From:      cell,
				To:        c.NewCell,
				Surface:   c.Surface,
				Distance:  c.Distance,
				Reflected: c.Reflected,
			})
		}

		cell = c.NewCell
		h.Final, h.Position = cell, p
	}
}

// Isotropic draws a direction uniformly on the unit sphere.
func Isotropic(rng *rand.Rand) v3.Vec {
	mu := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	s := math.Sqrt(1 - mu*mu)
	return v3.Vec{X: mu, Y: s * math.Cos(phi), Z: s * math.Sin(phi)}
}

// Reflect mirrors the direction d about the plane with unit normal n.
func Reflect(d, n v3.Vec) v3.Vec {
	r := d.Sub(n.MulScalar(2 * d.Dot(n)))
	// Keep the result unit length against rounding drift.
	return r.MulScalar(1 / r.Length())
}

func fmtVec(v v3.Vec) string {
	return fmt.Sprintf("(%g %g %g)", v.X, v.Y, v.Z)
}
