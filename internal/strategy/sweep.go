package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"macdtrader/internal/domain"
)

// Sweep backtests one series under several account settings using up to
// maxWorkers goroutines. Every run derives its own lines and account; results
// are returned in the order of settings. Failed runs leave a nil entry and
// their errors are joined into the returned error.
func (bt *Backtester) Sweep(ctx context.Context, strategyName string, series domain.PriceSeries, settings []Settings, maxWorkers int) ([]*Result, error) {
	results := make([]*Result, len(settings))
	errs := make([]error, len(settings))

	jobs := make(chan int, len(settings))
	for i := range settings {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	workers := min(max(maxWorkers, 1), len(settings))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					errs[i] = ctx.Err()
					continue
				}
				res, err := bt.RunSeries(ctx, strategyName, series, settings[i])
				if err != nil {
					errs[i] = fmt.Errorf("sweep run %d: %w", i, err)
					continue
				}
				results[i] = res
			}
		}()
	}
	wg.Wait()

	return results, errors.Join(errs...)
}
