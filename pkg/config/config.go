// Package config reads the INI-style run configuration used by the
// command line driver.
package config

import (
	"fmt"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gopkg.in/gcfg.v1"

	"github.com/chazu/mcgeometry/pkg/geometry"
)

// Example is a complete configuration file with every parameter set to
// its default.
const Example = `[Geometry]
# DSL file describing surfaces and cells.
Source = geometry.lisp

[Walk]
# Number of independent histories and the per-history step limit.
Histories = 1000
MaxSteps = 10000
# Goroutines used to run histories. 0 means one per CPU.
Workers = 0
Seed = 1
# Probability of a new random direction after each crossing.
Redirect = 0
# first-hit or nearest-hit.
Policy = first-hit
# Starting point "x y z".
Start = 0 0 0

[Mesh]
# Marching cubes resolution along the longest side of the box.
Cells = 100
# Half-width of the box meshed around the origin.
Bound = 5

[Log]
Level = info
`

// Config is the full run configuration.
type Config struct {
	Geometry GeometryConfig
	Walk     WalkConfig
	Mesh     MeshConfig
	Log      LogConfig
}

// GeometryConfig locates the geometry source.
type GeometryConfig struct {
	Source string
}

// WalkConfig controls random walks through the geometry.
type WalkConfig struct {
	Histories int
	MaxSteps  int
	Workers   int
	Seed      int64
	Redirect  float64
	Policy    string
	Start     string
}

// MeshConfig controls tessellation of cells.
type MeshConfig struct {
	Cells int
	Bound float64
}

// LogConfig controls logging.
type LogConfig struct {
	Level string
}

// Default returns the configuration described by Example.
func Default() *Config {
	return &Config{
		Geometry: GeometryConfig{Source: "geometry.lisp"},
		Walk: WalkConfig{
			Histories: 1000,
			MaxSteps:  10000,
			Seed:      1,
			Policy:    geometry.FirstHit.String(),
			Start:     "0 0 0",
		},
		Mesh: MeshConfig{Cells: 100, Bound: 5},
		Log:  LogConfig{Level: "info"},
	}
}

// Read loads a configuration file over the defaults and validates it.
func Read(path string) (*Config, error) {
	c := Default()
	if err := gcfg.ReadFileInto(c, path); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// ReadString is Read for an in-memory configuration.
func ReadString(src string) (*Config, error) {
	c := Default()
	if err := gcfg.ReadStringInto(c, src); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Validate reports the first invalid parameter.
func (c *Config) Validate() error {
	if c.Walk.Histories < 0 {
		return fmt.Errorf("walk: histories %d must not be negative", c.Walk.Histories)
	}
	if c.Walk.MaxSteps <= 0 {
		return fmt.Errorf("walk: maxsteps %d must be positive", c.Walk.MaxSteps)
	}
	if c.Walk.Workers < 0 {
		return fmt.Errorf("walk: workers %d must not be negative", c.Walk.Workers)
	}
	if c.Walk.Redirect < 0 || c.Walk.Redirect > 1 {
		return fmt.Errorf("walk: redirect %g outside [0, 1]", c.Walk.Redirect)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("walk: %w", err)
	}
	if _, err := c.StartPoint(); err != nil {
		return fmt.Errorf("walk: start: %w", err)
	}
	if c.Mesh.Cells <= 0 {
		return fmt.Errorf("mesh: cells %d must be positive", c.Mesh.Cells)
	}
	if !(c.Mesh.Bound > 0) {
		return fmt.Errorf("mesh: bound %g must be positive", c.Mesh.Bound)
	}
	return nil
}

// Policy returns the configured intercept policy.
func (c *Config) Policy() (geometry.Policy, error) {
	p, ok := geometry.ParsePolicy(strings.TrimSpace(c.Walk.Policy))
	if !ok {
		return p, fmt.Errorf("unknown policy %q, expected first-hit or nearest-hit", c.Walk.Policy)
	}
	return p, nil
}

// StartPoint parses the walk start point.
func (c *Config) StartPoint() (v3.Vec, error) {
	return ParseVec(c.Walk.Start)
}

// ParseVec parses three whitespace or comma separated numbers.
func ParseVec(s string) (v3.Vec, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 {
		return v3.Vec{}, fmt.Errorf("expected 3 coordinates, got %d in %q", len(fields), s)
	}
	var xyz [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return v3.Vec{}, fmt.Errorf("coordinate %d: %w", i, err)
		}
		xyz[i] = v
	}
	return v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
