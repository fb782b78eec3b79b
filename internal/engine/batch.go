package engine

import (
	"context"
	"fmt"
	"sync"

	"neuropharm/internal/model"
)

// SimulateBatch runs independent requests on a bounded worker pool.
// Results keep the input order. The first failing request aborts the
// batch with an error naming its index; already-computed results are
// discarded.
func (e *Engine) SimulateBatch(ctx context.Context, requests []model.SimulationRequest) ([]model.SimulationResult, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	type job struct {
		idx int
		req model.SimulationRequest
	}
	type outcome struct {
		idx int
		res model.SimulationResult
		err error
	}

	jobs := make(chan job)
	outcomes := make(chan outcome, len(requests))

	workerCount := e.workers
	if workerCount > len(requests) {
		workerCount = len(requests)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					outcomes <- outcome{idx: j.idx, err: err}
					continue
				}
				res, err := e.Simulate(ctx, j.req)
				outcomes <- outcome{idx: j.idx, res: res, err: err}
			}
		}()
	}

	for i := range requests {
		jobs <- job{idx: i, req: requests[i]}
	}
	close(jobs)

	wg.Wait()
	close(outcomes)

	results := make([]model.SimulationResult, len(requests))
	firstErrIdx := -1
	var firstErr error
	for out := range outcomes {
		if out.err != nil {
			if firstErrIdx == -1 || out.idx < firstErrIdx {
				firstErrIdx = out.idx
				firstErr = out.err
			}
			continue
		}
		results[out.idx] = out.res
	}
	if firstErr != nil {
		return nil, fmt.Errorf("request %d: %w", firstErrIdx, firstErr)
	}
	return results, nil
}
