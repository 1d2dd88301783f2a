package engine

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/mcgeometry/pkg/contract"
	"github.com/chazu/mcgeometry/pkg/geometry"
	"github.com/chazu/mcgeometry/pkg/surface"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

func sexpInt(i int) *zygo.SexpInt { return &zygo.SexpInt{Val: int64(i)} }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A keyword in last position with no value is stored as SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		switch {
		case !ok:
			result.positional = append(result.positional, args[i])
		case i+1 < len(args):
			result.kw[name] = args[i+1]
			i++
		default:
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// unknown reports the first keyword not in allowed.
func (a kwArgs) unknown(allowed ...string) error {
	for name := range a.kw {
		found := false
		for _, ok := range allowed {
			if name == ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown keyword :%s", name)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer index from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool accepts true/false, or a trailing bare keyword which reads as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toVec3 extracts a v3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toDirection accepts a vec3 or one of the axis keywords :x, :y, :z.
func toDirection(s zygo.Sexp) (v3.Vec, error) {
	if _, ok := s.(*zygo.SexpStr); ok {
		a, err := toAxis(s)
		if err != nil {
			return v3.Vec{}, err
		}
		switch a {
		case surface.AxisX:
			return v3.Vec{X: 1}, nil
		case surface.AxisY:
			return v3.Vec{Y: 1}, nil
		}
		return v3.Vec{Z: 1}, nil
	}
	return toVec3(s)
}

// toAxis converts a keyword or string to a surface.Axis.
func toAxis(s zygo.Sexp) (surface.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	switch name {
	case "x":
		return surface.AxisX, nil
	case "y":
		return surface.AxisY, nil
	case "z":
		return surface.AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

// toSigned flattens integer arguments and lists of integers into signed
// surface indices.
func toSigned(args []zygo.Sexp) ([]int, error) {
	var out []int
	for i, a := range args {
		switch a.(type) {
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			inner, err := toSigned(items)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			out = append(out, inner...)
		default:
			n, err := toInt(a)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// guard turns a contract violation raised while building the geometry
// into an ordinary evaluation error.
func guard(fn builtin, env *zygo.Zlisp, name string, args []zygo.Sexp) (res zygo.Sexp, err error) {
	defer contract.Recover(&err)
	return fn(env, name, args)
}

// builder installs builtins that all populate one geometry. It keeps the
// first error a builtin returned, which zygomys may reword.
type builder struct {
	g      *geometry.Geometry
	failed error
}

func (b *builder) add(env *zygo.Zlisp, name string, fn builtin) {
	env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		res, err := guard(fn, env, name, args)
		if err != nil {
			if b.failed == nil {
				b.failed = err
			}
			return zygo.SexpNull, err
		}
		return res, nil
	})
}

// register adds s to the geometry, honouring :reflecting, and returns its
// index to the program.
func (b *builder) register(op string, s surface.Surface, pa kwArgs) (zygo.Sexp, error) {
	var opts []geometry.SurfaceOption
	if v, ok := pa.kw["reflecting"]; ok {
		r, err := toBool(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: reflecting: %w", op, err)
		}
		if r {
			opts = append(opts, geometry.Reflecting())
		}
	}
	return sexpInt(b.g.AddSurface(s, opts...)), nil
}

// vecArg reads an optional vec3 keyword, falling back to def.
func vecArg(op, key string, pa kwArgs, def v3.Vec) (v3.Vec, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return v3.Vec{}, fmt.Errorf("%s: %s: %w", op, key, err)
	}
	return vec, nil
}

// numArg reads a number from a keyword or, failing that, the first
// positional argument.
func numArg(op, key string, pa kwArgs) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		if len(pa.positional) == 0 {
			return 0, fmt.Errorf("%s: missing %s", op, key)
		}
		v = pa.positional[0]
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", op, key, err)
	}
	return f, nil
}

// registerBuiltins installs the geometry DSL into a zygomys environment.
// The builtins populate g during evaluation; the returned builder reports
// the first builtin failure.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals and
// kebab-case names match the snake case registrations below.
func registerBuiltins(env *zygo.Zlisp, g *geometry.Geometry) *builder {
	b := &builder{g: g}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	b.add(env, "vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere :center (vec3 0 0 0) :radius 2 :reflecting false)
	// -----------------------------------------------------------------------
	b.add(env, "sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknown("center", "radius", "reflecting"); err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		center, err := vecArg("sphere", "center", pa, v3.Vec{})
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := numArg("sphere", "radius", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := surface.NewSphere(center, r)
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.register("sphere", s, pa)
	})

	// -----------------------------------------------------------------------
	// (plane :normal (vec3 1 1 0) :point (vec3 1 1 0))
	// -----------------------------------------------------------------------
	b.add(env, "plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknown("normal", "point", "reflecting"); err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: %w", err)
		}
		v, ok := pa.kw["normal"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("plane: missing normal")
		}
		normal, err := toDirection(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: normal: %w", err)
		}
		point, err := vecArg("plane", "point", pa, v3.Vec{})
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := surface.NewPlane(normal, point)
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.register("plane", s, pa)
	})

	// -----------------------------------------------------------------------
	// (plane-x 1) (plane-y :at -2) (plane-z 0 :reflecting true)
	// -----------------------------------------------------------------------
	for _, axis := range []surface.Axis{surface.AxisX, surface.AxisY, surface.AxisZ} {
		axis := axis
		op := "plane-" + axis.String()
		b.add(env, "plane_"+axis.String(), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if err := pa.unknown("at", "reflecting"); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			at, err := numArg(op, "at", pa)
			if err != nil {
				return zygo.SexpNull, err
			}
			s, err := surface.NewAxisPlane(axis, at)
			if err != nil {
				return zygo.SexpNull, err
			}
			return b.register(op, s, pa)
		})
	}

	// -----------------------------------------------------------------------
	// (cylinder :point (vec3 1 1 0) :axis :x :radius 3)
	// -----------------------------------------------------------------------
	b.add(env, "cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknown("point", "axis", "radius", "reflecting"); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		point, err := vecArg("cylinder", "point", pa, v3.Vec{})
		if err != nil {
			return zygo.SexpNull, err
		}
		axis := v3.Vec{Z: 1}
		if v, ok := pa.kw["axis"]; ok {
			if axis, err = toDirection(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: axis: %w", err)
			}
		}
		r, err := numArg("cylinder", "radius", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := surface.NewCylinder(point, axis, r)
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.register("cylinder", s, pa)
	})

	// -----------------------------------------------------------------------
	// (inside s) (outside s)
	// -----------------------------------------------------------------------
	sense := func(op string, sign int) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 surface, got %d", op, len(args))
			}
			i, err := toInt(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			if i <= 0 || i > g.SurfaceCount() {
				return zygo.SexpNull, fmt.Errorf("%s: no surface %d", op, i)
			}
			return sexpInt(sign * i), nil
		}
	}
	b.add(env, "inside", sense("inside", -1))
	b.add(env, "outside", sense("outside", 1))

	// -----------------------------------------------------------------------
	// (cell (inside a) (outside b) ...) and (dead-cell (outside b))
	// -----------------------------------------------------------------------
	cell := func(op string, dead bool) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			signed, err := toSigned(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			c := g.AddRegion(signed...)
			if dead {
				g.SetDeadRegion(c)
			}
			return sexpInt(c), nil
		}
	}
	b.add(env, "cell", cell("cell", false))
	b.add(env, "dead_cell", cell("dead-cell", true))

	// -----------------------------------------------------------------------
	// (policy :nearest-hit)
	// -----------------------------------------------------------------------
	b.add(env, "policy", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("policy requires exactly 1 argument, got %d", len(args))
		}
		s, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("policy: %w", err)
		}
		p, ok := geometry.ParsePolicy(s)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("policy: unknown policy %q, expected first-hit or nearest-hit", s)
		}
		g.SetPolicy(p)
		return zygo.SexpNull, nil
	})
	return b
}
