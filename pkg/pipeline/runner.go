package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrDatasetsFailed is returned by Failures when at least one dataset failed.
var ErrDatasetsFailed = errors.New("datasets failed")

// Runner processes several datasets with a bounded number of workers.
type Runner struct {
	proc     *Processor
	workers  int
	failFast bool
}

// NewRunner creates a Runner. Workers below 1 are treated as 1.
func NewRunner(proc *Processor, workers int, failFast bool) *Runner {
	return &Runner{
		proc:     proc,
		workers:  max(workers, 1),
		failFast: failFast,
	}
}

// Run processes every path and returns results in input order.
//
// Without fail-fast, per-dataset failures are only recorded in Result.Err
// and Run returns nil. With fail-fast, the first failure cancels datasets
// that have not started yet and is returned; their results carry the
// cancellation error.
func (r *Runner) Run(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)

	for i, path := range paths {
		group.Go(func() error {
			ctxErr := groupCtx.Err()
			if ctxErr != nil {
				results[i] = Result{Source: path, Err: fmt.Errorf("%s: %w", path, ctxErr)}

				return nil
			}

			results[i] = r.proc.Process(groupCtx, path)

			if r.failFast && results[i].Err != nil {
				return results[i].Err
			}

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return results, err
	}

	return results, nil
}

// Failures joins the errors of all failed results, wrapped in ErrDatasetsFailed.
// It returns nil when every dataset succeeded.
func Failures(results []Result) error {
	var errs []error

	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %d of %d: %w", ErrDatasetsFailed, len(errs), len(results), errors.Join(errs...))
}
