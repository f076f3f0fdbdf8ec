package cosim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// A Factory builds a fresh runner, with its own engine and device, for one
// test.
type Factory func(test Test) (*Runner, error)

// RunAll runs the tests, at most parallelism at a time. Every test gets its
// own runner, so no device is ever driven by two tests. Results keep the
// order of tests. A failing test is a result, not an error; the returned
// error reports a factory failure or a cancelled context.
func RunAll(
	ctx context.Context,
	tests []Test,
	factory Factory,
	parallelism int,
) ([]Result, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]Result, len(tests))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, t := range tests {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			runner, err := factory(t)
			if err != nil {
				return fmt.Errorf("building simulation for %s: %w", t.Name, err)
			}

			results[i] = runner.Run(t)

			return nil
		})
	}

	err := g.Wait()

	return results, err
}

// AllPassed tells if every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}

	return true
}
