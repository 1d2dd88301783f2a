package engine

import (
	"math"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/mcgeometry/pkg/geometry"
	"github.com/chazu/mcgeometry/pkg/surface"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(sphere :radius 2)`,
			expect: `(sphere "__kw_radius" 2)`,
		},
		{
			name:   "multiple keywords",
			input:  `(plane :normal :x :point p)`,
			expect: `(plane "__kw_normal" "__kw_x" "__kw_point" p)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`dead-cell :x` dead-cell",
			expect: "`dead-cell :x` dead_cell",
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(dead-cell (outside outer-shell))`,
			expect: `(dead_cell (outside outer_shell))`,
		},
		{
			name:   "minus operator and negative literal preserved",
			input:  `(- 10 5) (plane-x -1)`,
			expect: `(- 10 5) (plane_x -1)`,
		},
		{
			name:   "comment converted to // style",
			input:  ";; comment with :keyword\n(cell 1)",
			expect: "// comment with :keyword\n(cell 1)",
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:nearest-hit`,
			expect: `"__kw_nearest-hit"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func mustEvaluate(t *testing.T, source string) *geometry.Geometry {
	t.Helper()
	g, evalErrs, err := NewEngine(nil).Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	return g
}

func expectEvalError(t *testing.T, source, substr string) {
	t.Helper()
	g, evalErrs, err := NewEngine(nil).Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil geometry on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatalf("expected eval error containing %q", substr)
	}
	if !strings.Contains(evalErrs[0].Message, substr) {
		t.Errorf("error = %q, want containing %q", evalErrs[0].Message, substr)
	}
}

// ---------------------------------------------------------------------------
// Geometry builtins
// ---------------------------------------------------------------------------

const concentricSource = `
;; Two concentric spheres with a dead outside.
(def inner (sphere :center (vec3 0 0 0) :radius 1))
(def outer (sphere :radius 2))
(def core (cell (inside inner)))
(cell (outside inner) (inside outer))
(dead-cell (outside outer))
`

func TestConcentricSpheres(t *testing.T) {
	g := mustEvaluate(t, concentricSource)

	if g.SurfaceCount() != 2 {
		t.Fatalf("surfaces = %d, want 2", g.SurfaceCount())
	}
	if g.RegionCount() != 3 {
		t.Fatalf("cells = %d, want 3", g.RegionCount())
	}
	if g.DeadRegion() != 3 {
		t.Errorf("dead region = %d, want 3", g.DeadRegion())
	}

	s, ok := g.Surface(2).(*surface.Sphere)
	if !ok {
		t.Fatalf("surface 2 is %T, want *surface.Sphere", g.Surface(2))
	}
	if s.Radius() != 2 {
		t.Errorf("outer radius = %g, want 2", s.Radius())
	}

	shell := g.Region(2)
	if len(shell) != 2 || shell[0] != 1 || shell[1] != -2 {
		t.Errorf("shell region = %v, want [1 -2]", shell)
	}

	if c := g.CellFromPoint(v3.Vec{X: 1.5}); c != 2 {
		t.Errorf("cell at 1.5 = %d, want 2", c)
	}
	cr := g.Intercept(1, v3.Vec{}, v3.Vec{X: 1})
	if !cr.Hit || cr.NewCell != 2 || math.Abs(cr.Distance-1) > 1e-12 {
		t.Errorf("intercept from core = %+v", cr)
	}
}

func TestRawSignedIndices(t *testing.T) {
	g := mustEvaluate(t, `
(sphere :radius 1)
(sphere :radius 2)
(cell -1)
(cell (list 1 -2))
(dead-cell 2)
`)
	r := g.Region(2)
	if len(r) != 2 || r[0] != 1 || r[1] != -2 {
		t.Errorf("region 2 = %v, want [1 -2]", r)
	}
	if g.DeadRegion() != 3 {
		t.Errorf("dead region = %d, want 3", g.DeadRegion())
	}
}

func TestPlaneBuiltins(t *testing.T) {
	g := mustEvaluate(t, `
(plane :normal (vec3 1 1 0) :point (vec3 1 1 0))
(plane-x 1)
(plane-y :at -2)
(plane-z 0 :reflecting true)
(plane :normal :y)
`)
	if g.SurfaceCount() != 5 {
		t.Fatalf("surfaces = %d, want 5", g.SurfaceCount())
	}

	p, ok := g.Surface(1).(*surface.Plane)
	if !ok {
		t.Fatalf("surface 1 is %T, want *surface.Plane", g.Surface(1))
	}
	if !p.IsPositive(v3.Vec{X: 2, Y: 2}) || p.IsPositive(v3.Vec{}) {
		t.Error("general plane has the wrong orientation")
	}

	for i, want := range []struct {
		axis  surface.Axis
		coord float64
	}{{surface.AxisX, 1}, {surface.AxisY, -2}, {surface.AxisZ, 0}} {
		ap, ok := g.Surface(i + 2).(*surface.AxisPlane)
		if !ok {
			t.Fatalf("surface %d is %T, want *surface.AxisPlane", i+2, g.Surface(i+2))
		}
		if ap.Axis() != want.axis || ap.Coordinate() != want.coord {
			t.Errorf("surface %d = %s, want %s=%g", i+2, ap, want.axis, want.coord)
		}
	}

	if g.IsReflecting(3) {
		t.Error("plane-y should not be reflecting")
	}
	if !g.IsReflecting(4) {
		t.Error("plane-z should be reflecting")
	}
}

func TestCylinderBuiltin(t *testing.T) {
	g := mustEvaluate(t, `
(cylinder :point (vec3 1 1 0) :axis :x :radius 3)
(cylinder :axis (vec3 0 0 2) :radius 1.5 :reflecting true)
`)
	c, ok := g.Surface(1).(*surface.Cylinder)
	if !ok {
		t.Fatalf("surface 1 is %T, want *surface.Cylinder", g.Surface(1))
	}
	if c.Axis() != (v3.Vec{X: 1}) || c.Radius() != 3 {
		t.Errorf("cylinder 1 = %s", c)
	}

	z, ok := g.Surface(2).(*surface.Cylinder)
	if !ok {
		t.Fatalf("surface 2 is %T, want *surface.Cylinder", g.Surface(2))
	}
	if z.Axis() != (v3.Vec{Z: 1}) {
		t.Errorf("axis should be normalized, got %v", z.Axis())
	}
	if !g.IsReflecting(2) {
		t.Error("cylinder 2 should be reflecting")
	}
}

func TestPolicyBuiltin(t *testing.T) {
	g := mustEvaluate(t, `(policy :nearest-hit)`)
	if g.Policy() != geometry.NearestHit {
		t.Errorf("policy = %s, want nearest-hit", g.Policy())
	}
	g = mustEvaluate(t, `(sphere :radius 1)`)
	if g.Policy() != geometry.FirstHit {
		t.Errorf("default policy = %s, want first-hit", g.Policy())
	}

	eng := NewEngine(nil, geometry.WithPolicy(geometry.NearestHit))
	g, _, err := eng.Evaluate(`(sphere :radius 1)`)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if g.Policy() != geometry.NearestHit {
		t.Errorf("engine option policy = %s, want nearest-hit", g.Policy())
	}
	g, _, err = eng.Evaluate(`(policy :first-hit)`)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if g.Policy() != geometry.FirstHit {
		t.Errorf("program should override the engine policy, got %s", g.Policy())
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		substr string
	}{
		{"negative radius", `(sphere :radius -1)`, "must be positive"},
		{"missing radius", `(sphere :center (vec3 0 0 0))`, "missing radius"},
		{"unknown keyword", `(sphere :radius 1 :colour 2)`, "unknown keyword :colour"},
		{"radius not a number", `(sphere :radius "big")`, "expected number"},
		{"vec3 arity", `(vec3 1 2)`, "exactly 3 arguments"},
		{"zero plane normal", `(plane :normal (vec3 0 0 0))`, "plane"},
		{"missing plane normal", `(plane :point (vec3 0 0 0))`, "missing normal"},
		{"bad axis", `(cylinder :axis :w :radius 1)`, "invalid axis"},
		{"inside unknown surface", `(inside 3)`, "no surface 3"},
		{"cell with unregistered surface", "(sphere :radius 1)\n(cell 2)", "geometry.AddRegion"},
		{"second dead cell", "(sphere :radius 1)\n(dead-cell 1)\n(dead-cell -1)", "already set"},
		{"cell with non-integer", "(sphere :radius 1)\n(cell 1.5)", "expected integer"},
		{"unknown policy", `(policy :random)`, "unknown policy"},
		{"reflecting not boolean", `(plane-x 0 :reflecting 3)`, "expected boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectEvalError(t, tt.source, tt.substr)
		})
	}
}
