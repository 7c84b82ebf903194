package indexer

import (
	"context"
	"errors"

	"github.com/alitto/pond/v2"

	"github.com/feral-file/registry-indexer/internal/logger"
)

// Runner runs domain supervisors side by side.
// A supervisor stopping on a non-retryable error leaves the others running.
type Runner struct {
	supervisors []*Supervisor
}

// NewRunner creates a runner for supervisors
func NewRunner(supervisors ...*Supervisor) *Runner {
	return &Runner{supervisors: supervisors}
}

// Run blocks until every supervisor has stopped and returns their joined errors
func (r *Runner) Run(ctx context.Context) error {
	if len(r.supervisors) == 0 {
		return nil
	}

	pool := pond.NewPool(len(r.supervisors), pond.WithContext(ctx))
	defer pool.StopAndWait()

	tasks := make([]pond.Task, 0, len(r.supervisors))
	for _, sup := range r.supervisors {
		logger.InfoCtx(ctx, "Starting supervisor", logger.Domain(sup.Domain()))
		tasks = append(tasks, pool.SubmitErr(func() error {
			return sup.Run(ctx)
		}))
	}

	var errs []error
	for _, task := range tasks {
		if err := task.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
