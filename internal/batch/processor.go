// Package batch runs a function over a slice of items with a concurrency
// ceiling, preserving input order in the results.
package batch

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	minDefaultConcurrency = 2
	maxDefaultConcurrency = 8
)

// Options controls how many items run at once.
type Options struct {
	// MaxConcurrency is the batch size when Bounded is set.
	MaxConcurrency int
	// Bounded enables the ceiling. When false every item runs at once.
	Bounded bool
}

// DefaultConcurrency returns the CPU count clamped to [2, 8].
func DefaultConcurrency() int {
	n := runtime.NumCPU()
	if n < minDefaultConcurrency {
		return minDefaultConcurrency
	}
	if n > maxDefaultConcurrency {
		return maxDefaultConcurrency
	}
	return n
}

// DefaultOptions returns bounded options using DefaultConcurrency.
func DefaultOptions() Options {
	return Options{MaxConcurrency: DefaultConcurrency(), Bounded: true}
}

// Func processes one item. index is the item's position in the input.
type Func[T, R any] func(ctx context.Context, item T, index int) (R, error)

// Run applies fn to every item and returns the results in input order.
//
// Items are processed in consecutive batches of MaxConcurrency; a batch
// completes before the next one starts. The first failure cancels the
// context seen by the rest of its batch, later batches never start, and
// Run returns the error with no results.
func Run[T, R any](ctx context.Context, opts Options, items []T, fn Func[T, R]) ([]R, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	size := len(items)
	if opts.Bounded && opts.MaxConcurrency > 0 && opts.MaxConcurrency < size {
		size = opts.MaxConcurrency
	}

	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(items))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("batch item %d panicked: %v", i, r)
					}
				}()
				res, err := fn(gctx, items[i], i)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return results, nil
}
