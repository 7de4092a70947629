// internal/pkg/async/pool.go
package async

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

type Task struct {
	Name    string
	Execute func(ctx context.Context) (any, error)
}

type Result struct {
	Name string
	Data any
	Err  error
}

// Pool runs tasks with at most workerCount in flight.
type Pool struct {
	workerCount int
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs every task and returns their results by name. The first
// failing task cancels the context handed to the others. Tasks not started
// before ctx is done are reported with ctx's error.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerCount)

	var mu sync.Mutex
	results := make(map[string]Result, len(tasks))
	record := func(r Result) {
		mu.Lock()
		results[r.Name] = r
		mu.Unlock()
	}

	for _, task := range tasks {
		task := task
		if err := gctx.Err(); err != nil {
			record(Result{Name: task.Name, Err: err})
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				record(Result{Name: task.Name, Err: err})
				return err
			}
			data, err := task.Execute(gctx)
			record(Result{Name: task.Name, Data: data, Err: err})
			return err
		})
	}

	g.Wait()
	return results
}

// FirstError returns the error of the first task, in tasks order, that
// failed. Cancellations caused by a sibling failure are reported only when
// no task failed on its own.
func FirstError(tasks []Task, results map[string]Result) error {
	var canceled error
	for _, task := range tasks {
		r, ok := results[task.Name]
		if !ok || r.Err == nil {
			continue
		}
		if !errors.Is(r.Err, context.Canceled) {
			return r.Err
		}
		if canceled == nil {
			canceled = r.Err
		}
	}
	return canceled
}
