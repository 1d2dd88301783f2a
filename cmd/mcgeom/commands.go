package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chazu/mcgeometry/pkg/config"
	"github.com/chazu/mcgeometry/pkg/contract"
	"github.com/chazu/mcgeometry/pkg/engine"
	"github.com/chazu/mcgeometry/pkg/geometry"
	"github.com/chazu/mcgeometry/pkg/kernel/sdfx"
	"github.com/chazu/mcgeometry/pkg/logging"
	"github.com/chazu/mcgeometry/pkg/tessellate"
	"github.com/chazu/mcgeometry/pkg/walk"
)

// app is the state shared by every subcommand, filled in before each run.
type app struct {
	out io.Writer

	configPath   string
	geometryPath string
	logLevel     string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "mcgeom",
		Short:         "query a CSG cell geometry",
		Long:          "loads a geometry description and locates points, traces rays, runs random walks and meshes cells",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "run configuration file (gcfg)")
	flags.StringVarP(&a.geometryPath, "geometry", "g", "", "geometry source, overrides [Geometry] Source")
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides [Log] Level")

	root.AddCommand(
		a.locateCmd(),
		a.traceCmd(),
		a.walkCmd(),
		a.validateCmd(),
		a.describeCmd(),
		a.meshCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Read(a.configPath); err != nil {
			return err
		}
		// A relative source in a configuration file is relative to that file.
		if !filepath.IsAbs(cfg.Geometry.Source) {
			cfg.Geometry.Source = filepath.Join(filepath.Dir(a.configPath), cfg.Geometry.Source)
		}
	}
	if a.geometryPath != "" {
		cfg.Geometry.Source = a.geometryPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// loadGeometry evaluates the configured geometry source.
func (a *app) loadGeometry() (*geometry.Geometry, error) {
	path := a.cfg.Geometry.Source
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	policy, err := a.cfg.Policy()
	if err != nil {
		return nil, err
	}

	eng := engine.NewEngine(a.log, geometry.WithPolicy(policy))
	g, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("geometry: %s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("geometry: %s: %w", path, errors.Join(errs...))
	}

	logging.Named(a.log, "cli").WithFields(logrus.Fields{
		"source":   path,
		"surfaces": g.SurfaceCount(),
		"cells":    g.RegionCount(),
	}).Info("geometry loaded")
	return g, nil
}

// parseFloats parses every argument as a float64.
func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, s := range args {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// locate / trace
// ---------------------------------------------------------------------------

func (a *app) locateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate x y z",
		Short: "print the cell containing a point",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			xyz, err := parseFloats(args)
			if err != nil {
				return err
			}
			g, err := a.loadGeometry()
			if err != nil {
				return err
			}
			cell := g.CellFromPoint(v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
			if cell == geometry.Unclassified {
				fmt.Fprintln(a.out, "unclassified")
				return nil
			}
			fmt.Fprintf(a.out, "cell %d %s\n", cell, geometry.FormatRegion(g.Region(cell)))
			return nil
		},
	}
}

func (a *app) traceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace cell x y z dx dy dz",
		Short: "trace a ray out of a cell",
		Long:  "reports the boundary a ray starting in cell leaves through and the cell beyond; the direction is normalized first",
		Args:  cobra.ExactArgs(7),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cell, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("cell: %w", err)
			}
			v, err := parseFloats(args[1:])
			if err != nil {
				return err
			}
			p := v3.Vec{X: v[0], Y: v[1], Z: v[2]}
			d := v3.Vec{X: v[3], Y: v[4], Z: v[5]}
			if d.Length() == 0 {
				return fmt.Errorf("direction must be nonzero")
			}
			d = d.MulScalar(1 / d.Length())

			g, err := a.loadGeometry()
			if err != nil {
				return err
			}

			defer contract.Recover(&err)
			c := g.Intercept(cell, p, d)
			switch {
			case !c.Hit:
				fmt.Fprintln(a.out, "no hit")
			case c.Reflected:
				fmt.Fprintf(a.out, "surface %d distance %.15g reflected, stays in cell %d\n",
					c.Surface, c.Distance, c.NewCell)
			default:
				fmt.Fprintf(a.out, "surface %d distance %.15g -> cell %d\n",
					c.Surface, c.Distance, c.NewCell)
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// walk
// ---------------------------------------------------------------------------

func (a *app) walkCmd() *cobra.Command {
	var histories int
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "run random walks from the configured start point",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("histories") {
				a.cfg.Walk.Histories = histories
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			start, err := a.cfg.StartPoint()
			if err != nil {
				return err
			}
			g, err := a.loadGeometry()
			if err != nil {
				return err
			}

			w, err := walk.New(g, walk.Options{
				MaxSteps: a.cfg.Walk.MaxSteps,
				Redirect: a.cfg.Walk.Redirect,
				Workers:  a.cfg.Walk.Workers,
				Seed:     a.cfg.Walk.Seed,
				Logger:   a.log,
			})
			if err != nil {
				return err
			}
			s, err := w.Run(context.Background(), start, a.cfg.Walk.Histories)
			if err != nil {
				return err
			}
			printSummary(a.out, s)
			return nil
		},
	}
	cmd.Flags().IntVarP(&histories, "histories", "n", 0, "number of histories, overrides [Walk] Histories")
	return cmd
}

func printSummary(w io.Writer, s walk.Summary) {
	fmt.Fprintf(w, "histories   %d\n", s.Histories)
	fmt.Fprintf(w, "escaped     %d\n", s.Escaped)
	fmt.Fprintf(w, "lost        %d\n", s.Lost)
	fmt.Fprintf(w, "truncated   %d\n", s.Truncated)
	fmt.Fprintf(w, "crossings   %d\n", s.Crossings)
	fmt.Fprintf(w, "reflections %d\n", s.Reflections)
	fmt.Fprintf(w, "mean path   %.6g\n", s.MeanPathLength())

	cells := make([]int, 0, len(s.CellVisits))
	for c := range s.CellVisits {
		cells = append(cells, c)
	}
	sort.Ints(cells)
	for _, c := range cells {
		fmt.Fprintf(w, "cell %-4d   %d visits\n", c, s.CellVisits[c])
	}
}

// ---------------------------------------------------------------------------
// validate / describe
// ---------------------------------------------------------------------------

func (a *app) validateCmd() *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "check the geometry for structural problems",
		Long:  "runs the structural checks and, with --samples, probes random points in the mesh box for overlaps and gaps",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGeometry()
			if err != nil {
				return err
			}

			var sample *geometry.SampleOptions
			if samples > 0 {
				b := a.cfg.Mesh.Bound
				sample = &geometry.SampleOptions{
					Min:     v3.Vec{X: -b, Y: -b, Z: -b},
					Max:     v3.Vec{X: b, Y: b, Z: b},
					Samples: samples,
					Seed:    a.cfg.Walk.Seed,
				}
			}
			res := geometry.ValidateAll(g, sample)
			for _, e := range res.Errors {
				fmt.Fprintln(a.out, e.Error())
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(a.out, w.Error())
			}
			if !res.OK() {
				return fmt.Errorf("geometry has %d errors", len(res.Errors))
			}
			fmt.Fprintf(a.out, "ok (%d warnings)\n", len(res.Warnings))
			return nil
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 0, "random points to probe for overlapping or uncovered space")
	return cmd
}

func (a *app) describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "list surfaces and cells",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGeometry()
			if err != nil {
				return err
			}
			return g.Describe(a.out)
		},
	}
}

// ---------------------------------------------------------------------------
// mesh / config
// ---------------------------------------------------------------------------

func (a *app) meshCmd() *cobra.Command {
	var cells []int
	cmd := &cobra.Command{
		Use:   "mesh [out.json]",
		Short: "tessellate cells into triangle meshes",
		Long:  "writes one mesh per cell as JSON, to the named file or to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGeometry()
			if err != nil {
				return err
			}

			k := sdfx.New(a.cfg.Mesh.Cells)
			meshes, err := tessellate.Tessellate(g, k, tessellate.Options{
				Bound: a.cfg.Mesh.Bound,
				Cells: cells,
			})
			if err != nil {
				return err
			}

			out := a.out
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := json.NewEncoder(out).Encode(meshes); err != nil {
				return fmt.Errorf("mesh: %w", err)
			}
			logging.Named(a.log, "cli").WithField("meshes", len(meshes)).Info("meshes written")
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&cells, "cells", nil, "cells to mesh, default every cell but the dead one")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print an example configuration with every default",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(a.out, config.Example)
			return err
		},
	}
}
