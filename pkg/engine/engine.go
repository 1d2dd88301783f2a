// Package engine evaluates the geometry description language. It wraps
// zygomys in a sandboxed environment and produces a frozen
// geometry.Geometry from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/sirupsen/logrus"

	"github.com/chazu/mcgeometry/pkg/geometry"
	"github.com/chazu/mcgeometry/pkg/logging"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	log        *logrus.Entry
	opts       []geometry.Option
}

// NewEngine creates a new Engine. A nil logger discards output. The
// options seed every geometry it builds; the program may still override
// them, for instance with (policy ...).
func NewEngine(log logrus.FieldLogger, opts ...geometry.Option) *Engine {
	return &Engine{log: logging.Named(log, "engine"), opts: opts}
}

// Evaluate runs source and returns the geometry it describes, frozen and
// ready for queries.
//
// Return semantics:
//   - On success: returns geometry + nil errors + nil error
//   - On parse/eval failure: returns nil geometry + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*geometry.Geometry, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		g, evalErrs, err := e.evaluate(source)
		ch <- evalResult{geometry: g, errors: evalErrs, err: err}
	}()

	g, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation)
	switch {
	case err != nil:
		e.log.WithError(err).Error("evaluation failed")
	case len(evalErrs) > 0:
		e.log.WithField("errors", len(evalErrs)).Warn("geometry source has errors")
	default:
		e.log.WithFields(logrus.Fields{
			"surfaces": g.SurfaceCount(),
			"cells":    g.RegionCount(),
			"dead":     g.DeadRegion(),
			"policy":   g.Policy().String(),
		}).Debug("geometry evaluated")
	}
	return g, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*geometry.Geometry, []EvalError, error) {
	g := geometry.New(e.opts...)

	// Empty source is a valid program that produces an empty geometry.
	if strings.TrimSpace(source) == "" {
		g.Freeze()
		return g, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := registerBuiltins(env, g)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		evalErrs := parseZygomysError(err)
		if b.failed != nil {
			// Report the builtin's own message, keeping any line info.
			evalErrs[0].Message = b.failed.Error()
		}
		return nil, evalErrs, nil
	}

	g.Freeze()
	return g, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// No line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
