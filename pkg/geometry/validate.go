package geometry

import (
	"fmt"
	"math/rand"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ValidationSeverity indicates whether a finding makes queries fail or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // some query will panic or misbehave
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Cell     int // offending cell, 0 if not cell-specific
	Surface  int // offending surface, 0 if not surface-specific
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	switch {
	case e.Cell != 0:
		return fmt.Sprintf("[%s] cell %d: %s", e.Severity, e.Cell, e.Message)
	case e.Surface != 0:
		return fmt.Sprintf("[%s] surface %d: %s", e.Severity, e.Surface, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
}

// ValidationResult bundles blocking errors and advisory warnings from all
// validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no errors were found.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// SampleOptions controls the sampling tier of ValidateAll. Points are drawn
// uniformly from the box [Min, Max].
type SampleOptions struct {
	Min, Max v3.Vec
	Samples  int
	Seed     int64
}

// Validate runs the structural checks on g and returns every finding. It
// never mutates g.
func Validate(g *Geometry) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRegions(g)...)
	errs = append(errs, validateAdjacency(g)...)
	errs = append(errs, validateUsage(g)...)
	errs = append(errs, validateDead(g)...)
	return errs
}

// ValidateAll runs the structural checks and, when sample is non-nil, the
// sampling checks, and separates errors from warnings.
func ValidateAll(g *Geometry, sample *SampleOptions) ValidationResult {
	// Tier 1: structural.
	findings := Validate(g)

	// Tier 2: sampled overlaps and gaps.
	if sample != nil {
		findings = append(findings, validateSampled(g, *sample)...)
	}

	var result ValidationResult
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, f)
		} else {
			result.Errors = append(result.Errors, f)
		}
	}
	return result
}

// validateRegions checks each cell's own surface list.
func validateRegions(g *Geometry) []ValidationError {
	var errs []ValidationError

	for i, r := range g.regions {
		cell := i + 1
		if len(r) == 0 {
			errs = append(errs, ValidationError{
				Cell:     cell,
				Message:  "cell has no bounding surfaces and contains every point",
				Severity: SeverityError,
			})
			continue
		}

		seen := make(map[int]bool, len(r))
		for _, s := range r {
			if seen[s] {
				errs = append(errs, ValidationError{
					Cell:     cell,
					Surface:  abs(s),
					Message:  fmt.Sprintf("surface %+d is listed more than once", s),
					Severity: SeverityWarning,
				})
			}
			if seen[-s] {
				errs = append(errs, ValidationError{
					Cell:     cell,
					Surface:  abs(s),
					Message:  fmt.Sprintf("surface %d is listed with both senses, cell is empty", abs(s)),
					Severity: SeverityWarning,
				})
			}
			seen[s] = true
		}
	}

	return errs
}

// validateAdjacency checks that every non-mirror boundary is shared with
// exactly one cell on its other side, which Intercept requires. Boundaries
// of the dead cell are only warned about since rays never leave it.
func validateAdjacency(g *Geometry) []ValidationError {
	var errs []ValidationError

	reported := make(map[int]bool)
	for i, r := range g.regions {
		cell := i + 1
		for _, s := range r {
			if g.surfaces[abs(s)-1].reflecting || reported[s] {
				continue
			}
			_, count := g.listing(-s)
			if count == 1 {
				continue
			}
			severity := SeverityError
			if g.IsDeadRegion(cell) {
				severity = SeverityWarning
			}
			reported[s] = true
			errs = append(errs, ValidationError{
				Cell:     cell,
				Surface:  abs(s),
				Message:  fmt.Sprintf("boundary %+d borders %d cells on its %s side, want exactly 1", s, count, senseName(-s)),
				Severity: severity,
			})
		}
	}

	return errs
}

// validateUsage warns about surfaces no cell refers to.
func validateUsage(g *Geometry) []ValidationError {
	var errs []ValidationError

	used := make([]bool, len(g.surfaces))
	for _, r := range g.regions {
		for _, s := range r {
			used[abs(s)-1] = true
		}
	}
	for i, u := range used {
		if !u {
			errs = append(errs, ValidationError{
				Surface:  i + 1,
				Message:  "surface is not used by any cell",
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

// validateDead warns when no dead region is set, so walks cannot end.
func validateDead(g *Geometry) []ValidationError {
	if g.dead != 0 || len(g.regions) == 0 {
		return nil
	}
	return []ValidationError{{
		Message:  "no dead region is set",
		Severity: SeverityWarning,
	}}
}

// validateSampled classifies random points and reports cells that overlap
// and regions of the box no cell covers.
func validateSampled(g *Geometry, opts SampleOptions) []ValidationError {
	if opts.Samples <= 0 || len(g.regions) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	span := opts.Max.Sub(opts.Min)

	type pair struct{ a, b int }
	overlaps := make(map[pair]int)
	gaps := 0
	for n := 0; n < opts.Samples; n++ {
		p := v3.Vec{
			X: opts.Min.X + rng.Float64()*span.X,
			Y: opts.Min.Y + rng.Float64()*span.Y,
			Z: opts.Min.Z + rng.Float64()*span.Z,
		}
		var cells []int
		for i, r := range g.regions {
			if g.contains(r, p) {
				cells = append(cells, i+1)
			}
		}
		if len(cells) == 0 {
			gaps++
			continue
		}
		for i := 1; i < len(cells); i++ {
			overlaps[pair{cells[0], cells[i]}]++
		}
	}

	var errs []ValidationError
	pairs := make([]pair, 0, len(overlaps))
	for k := range overlaps {
		pairs = append(pairs, k)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	for _, k := range pairs {
		msg := fmt.Sprintf("overlaps cell %d at %d of %d sampled points; cell %d takes precedence",
			k.a, overlaps[k], opts.Samples, k.a)
		errs = append(errs, ValidationError{
			Cell:     k.b,
			Message:  msg,
			Severity: SeverityWarning,
		})
	}
	if gaps > 0 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("%d of %d sampled points lie in no cell", gaps, opts.Samples),
			Severity: SeverityWarning,
		})
	}

	return errs
}
