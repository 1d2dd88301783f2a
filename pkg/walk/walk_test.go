package walk

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/chazu/mcgeometry/pkg/geometry"
	"github.com/chazu/mcgeometry/pkg/logging"
	"github.com/chazu/mcgeometry/pkg/surface"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shells builds a core of radius 1, a shell out to radius 2 and a dead
// outside. Extra options are applied to the outer sphere.
func shells(t *testing.T, outer ...geometry.SurfaceOption) *geometry.Geometry {
	t.Helper()
	in, err := surface.NewSphere(v3.Vec{}, 1)
	require.NoError(t, err)
	out, err := surface.NewSphere(v3.Vec{}, 2)
	require.NoError(t, err)

	g := geometry.New()
	s1 := g.AddSurface(in)
	s2 := g.AddSurface(out, outer...)
	g.AddRegion(-s1)
	g.AddRegion(s1, -s2)
	g.SetDeadRegion(g.AddRegion(s2))
	g.Freeze()
	return g
}

func walker(t *testing.T, g *geometry.Geometry, opts Options) *Walker {
	t.Helper()
	w, err := New(g, opts)
	require.NoError(t, err)
	return w
}

func TestNewRejects(t *testing.T) {
	unfrozen := geometry.New()

	tests := []struct {
		name string
		g    *geometry.Geometry
		opts Options
	}{
		{"nil geometry", nil, Options{}},
		{"unfrozen geometry", unfrozen, Options{}},
		{"negative steps", shells(t), Options{MaxSteps: -1}},
		{"redirect below zero", shells(t), Options{Redirect: -0.1}},
		{"redirect above one", shells(t), Options{Redirect: 1.1}},
		{"negative workers", shells(t), Options{Workers: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.g, tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestStreamEscapes(t *testing.T) {
	w := walker(t, shells(t), Options{Record: true})

	h, err := w.Stream(v3.Vec{}, v3.Vec{X: 1})
	require.NoError(t, err)

	assert.Equal(t, Escaped, h.Outcome)
	assert.Equal(t, 1, h.Start)
	assert.Equal(t, 3, h.Final)
	assert.Equal(t, 2, h.Crossings)
	assert.Zero(t, h.Reflections)
	assert.InDelta(t, 2.0, h.PathLength, 1e-12)
	assert.InDelta(t, 2.0, h.Position.X, 1e-12)

	require.Len(t, h.Steps, 2)
	assert.Equal(t, Step{From: 1, To: 2, Surface: 1, Distance: 1}, h.Steps[0])
	assert.Equal(t, 2, h.Steps[1].From)
	assert.Equal(t, 3, h.Steps[1].To)
	assert.Equal(t, 2, h.Steps[1].Surface)
	assert.InDelta(t, 1.0, h.Steps[1].Distance, 1e-12)
}

func TestStreamWithoutRecordKeepsNoSteps(t *testing.T) {
	w := walker(t, shells(t), Options{})
	h, err := w.Stream(v3.Vec{X: 0.5}, v3.Vec{Y: -1})
	require.NoError(t, err)
	assert.Equal(t, Escaped, h.Outcome)
	assert.Nil(t, h.Steps)
}

func TestStreamFromDeadRegion(t *testing.T) {
	w := walker(t, shells(t), Options{})
	h, err := w.Stream(v3.Vec{X: 5}, v3.Vec{X: -1})
	require.NoError(t, err)
	assert.Equal(t, Escaped, h.Outcome)
	assert.Equal(t, 3, h.Start)
	assert.Zero(t, h.Crossings)
}

func TestStreamMirrorTruncates(t *testing.T) {
	w := walker(t, shells(t, geometry.Reflecting()), Options{MaxSteps: 10})

	h, err := w.Stream(v3.Vec{}, v3.Vec{X: 1})
	require.NoError(t, err)

	// The ray bounces along the x axis: cross, reflect, cross, cross, ...
	assert.Equal(t, Truncated, h.Outcome)
	assert.Equal(t, 3, h.Reflections)
	assert.Equal(t, 7, h.Crossings)
	assert.InDelta(t, 13.0, h.PathLength, 1e-9)
	assert.Equal(t, 2, h.Final)
}

func TestStreamUnclassifiedStartIsLost(t *testing.T) {
	core, err := surface.NewSphere(v3.Vec{}, 1)
	require.NoError(t, err)
	g := geometry.New()
	g.AddRegion(-g.AddSurface(core))
	g.Freeze()

	var buf bytes.Buffer
	log, err := logging.NewWithWriter(&buf, "warn")
	require.NoError(t, err)

	w := walker(t, g, Options{Logger: log})
	h, err := w.Stream(v3.Vec{X: 5}, v3.Vec{X: 1})
	require.NoError(t, err)
	assert.Equal(t, Lost, h.Outcome)
	assert.Equal(t, geometry.Unclassified, h.Start)
	assert.Contains(t, buf.String(), "start point is in no cell")
}

func TestStreamNonUnitDirectionIsError(t *testing.T) {
	w := walker(t, shells(t), Options{})
	_, err := w.Stream(v3.Vec{}, v3.Vec{X: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit vector")
}

func TestWalkAlwaysEscapesStraight(t *testing.T) {
	w := walker(t, shells(t), Options{})
	for seed := int64(0); seed < 100; seed++ {
		h, err := w.Walk(v3.Vec{}, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		assert.Equal(t, Escaped, h.Outcome, "seed %d", seed)
		assert.Equal(t, 2, h.Crossings, "seed %d", seed)
		assert.InDelta(t, 2.0, h.PathLength, 1e-9, "seed %d", seed)
		assert.InDelta(t, 2.0, h.Position.Length(), 1e-9, "seed %d", seed)
	}
}

func TestIsotropicIsUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var sum v3.Vec
	const n = 20000
	for i := 0; i < n; i++ {
		d := Isotropic(rng)
		require.True(t, surface.IsUnit(d), "direction %v", d)
		sum = sum.Add(d)
	}
	// The mean direction of an isotropic sample tends to zero.
	mean := sum.MulScalar(1.0 / n)
	assert.Less(t, mean.Length(), 0.03)
}

func TestReflect(t *testing.T) {
	d := v3.Vec{X: 1, Y: 1}.MulScalar(1 / math.Sqrt2)
	r := Reflect(d, v3.Vec{X: 1})
	assert.InDelta(t, -d.X, r.X, 1e-15)
	assert.InDelta(t, d.Y, r.Y, 1e-15)
	assert.InDelta(t, 0.0, r.Z, 1e-15)
	assert.True(t, surface.IsUnit(r))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "escaped", Escaped.String())
	assert.Equal(t, "lost", Lost.String())
	assert.Equal(t, "truncated", Truncated.String())
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRunIndependentOfWorkers(t *testing.T) {
	g := shells(t)
	opts := Options{Redirect: 0.5, Seed: 42}

	opts.Workers = 1
	one, err := walker(t, g, opts).Run(context.Background(), v3.Vec{}, 200)
	require.NoError(t, err)

	opts.Workers = 4
	four, err := walker(t, g, opts).Run(context.Background(), v3.Vec{}, 200)
	require.NoError(t, err)

	assert.Equal(t, 200, one.Histories)
	assert.Equal(t, 200, one.Escaped)
	assert.Equal(t, one.Escaped, four.Escaped)
	assert.Equal(t, one.Crossings, four.Crossings)
	assert.Equal(t, one.CellVisits, four.CellVisits)
	assert.InDelta(t, one.PathLength, four.PathLength, 1e-6)

	// Every history starts in the core and ends in the dead cell.
	assert.Equal(t, 200, four.CellVisits[3])
	assert.GreaterOrEqual(t, four.CellVisits[1], 200)
	assert.Greater(t, four.MeanPathLength(), 0.0)
}

func TestRunStraightSummary(t *testing.T) {
	w := walker(t, shells(t), Options{Workers: 3})
	s, err := w.Run(context.Background(), v3.Vec{}, 10)
	require.NoError(t, err)

	assert.Equal(t, 10, s.Histories)
	assert.Equal(t, 10, s.Escaped)
	assert.Equal(t, 20, s.Crossings)
	assert.InDelta(t, 2.0, s.MeanPathLength(), 1e-9)
	assert.Equal(t, map[int]int{1: 10, 2: 10, 3: 10}, s.CellVisits)
}

func TestRunZeroHistories(t *testing.T) {
	w := walker(t, shells(t), Options{})
	s, err := w.Run(context.Background(), v3.Vec{}, 0)
	require.NoError(t, err)
	assert.Zero(t, s.Histories)
	assert.Zero(t, s.MeanPathLength())

	_, err = w.Run(context.Background(), v3.Vec{}, -1)
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	w := walker(t, shells(t), Options{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Run(ctx, v3.Vec{}, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunReportsGeometryFailure(t *testing.T) {
	// Two cells claim the outside of the same sphere, so leaving the core
	// has no unique destination.
	s, err := surface.NewSphere(v3.Vec{}, 1)
	require.NoError(t, err)
	g := geometry.New()
	i := g.AddSurface(s)
	g.AddRegion(-i)
	g.AddRegion(i)
	g.SetDeadRegion(g.AddRegion(i))
	g.Freeze()

	w := walker(t, g, Options{Workers: 1})
	_, err = w.Run(context.Background(), v3.Vec{}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history 0")
	assert.Contains(t, err.Error(), "too complex")
}
