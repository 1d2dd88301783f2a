package walk

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Summary aggregates a batch of histories.
type Summary struct {
	Histories   int
	Escaped     int
	Lost        int
	Truncated   int
	Crossings   int
	Reflections int
	PathLength  float64
	// CellVisits counts entries into each cell, including the start cell.
	CellVisits map[int]int
}

// MeanPathLength is the average distance travelled per history.
func (s Summary) MeanPathLength() float64 {
	if s.Histories == 0 {
		return 0
	}
	return s.PathLength / float64(s.Histories)
}

func (s *Summary) add(h History) {
	s.Histories++
	switch h.Outcome {
	case Escaped:
		s.Escaped++
	case Lost:
		s.Lost++
	case Truncated:
		s.Truncated++
	}
	s.Crossings += h.Crossings
	s.Reflections += h.Reflections
	s.PathLength += h.PathLength
	if h.Start != 0 {
		s.CellVisits[h.Start]++
	}
	for _, st := range h.Steps {
		if !st.Reflected {
			s.CellVisits[st.To]++
		}
	}
}

func (s *Summary) merge(o Summary) {
	s.Histories += o.Histories
	s.Escaped += o.Escaped
	s.Lost += o.Lost
	s.Truncated += o.Truncated
	s.Crossings += o.Crossings
	s.Reflections += o.Reflections
	s.PathLength += o.PathLength
	for c, n := range o.CellVisits {
		s.CellVisits[c] += n
	}
}

func newSummary() Summary {
	return Summary{CellVisits: make(map[int]int)}
}

// Run follows n histories from start on Options.Workers goroutines.
// History i draws from its own generator seeded with Seed+i, so the summary
// does not depend on the number of workers. The first failing history
// cancels the rest.
func (w *Walker) Run(ctx context.Context, start v3.Vec, n int) (Summary, error) {
	if n < 0 {
		return Summary{}, fmt.Errorf("walk: history count %d must not be negative", n)
	}
	workers := w.opts.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	// Histories are recorded internally so cell visits can be counted.
	rec := *w
	rec.opts.Record = true

	var mu sync.Mutex
	total := newSummary()

	g, ctx := errgroup.WithContext(ctx)
	for k := 0; k < workers; k++ {
		k := k
		g.Go(func() error {
			part := newSummary()
			for i := k; i < n; i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				rng := rand.New(rand.NewSource(w.opts.Seed + int64(i)))
				h, err := rec.Walk(start, rng)
				if err != nil {
					return fmt.Errorf("walk: history %d: %w", i, err)
				}
				part.add(h)
			}
			mu.Lock()
			total.merge(part)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	w.log.WithFields(logrus.Fields{
		"histories": total.Histories,
		"escaped":   total.Escaped,
		"lost":      total.Lost,
		"truncated": total.Truncated,
		"crossings": total.Crossings,
	}).Info("run complete")
	return total, nil
}
