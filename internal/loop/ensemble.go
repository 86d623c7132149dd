package loop

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Factory builds an independent runner for one seed.
type Factory func(seed int64) (*Runner, error)

// Ensemble runs several seeded runs in parallel, one runner per goroutine.
type Ensemble struct {
	build     Factory
	numRuns   int
	seedStart int64
}

func NewEnsemble(build Factory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			r, err := e.build(e.seedStart + int64(idx))
			if err != nil {
				return err
			}
			results[idx], err = r.Run(ctx, cfg)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
