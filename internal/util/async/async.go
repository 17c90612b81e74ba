package async

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunBounded executes tasks concurrently with at most limit tasks in flight.
// A limit <= 0 runs every task at once.
//
// Unlike errgroup.WithContext, a failing task does not cancel its siblings:
// each task runs to completion and its error is stored at the task's index
// in the returned slice (nil for success). A panicking task is reported as
// an error naming the task.
func RunBounded(ctx context.Context, limit int, tasks []Task) []error {
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, task := range tasks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("task %s panicked: %v", task.Name, r)
				}
			}()
			errs[i] = task.Func(ctx)
			return nil
		})
	}

	_ = g.Wait()
	return errs
}
