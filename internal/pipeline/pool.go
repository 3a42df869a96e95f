package pipeline

import (
	"context"
	"sync"
)

// runPool calls fn for every index in [0, n) using up to workers goroutines.
// The first error cancels the remaining work and is returned.
func runPool(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return ctx.Err()
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan int)
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error
	worker := func() {
		defer wg.Done()
		for i := range tasks {
			if poolCtx.Err() != nil {
				continue
			}
			if err := fn(poolCtx, i); err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}
	}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go worker()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case tasks <- i:
		case <-poolCtx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
