package remote

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/imamik/boringsvc/internal/config"
	"github.com/imamik/boringsvc/internal/util/async"
)

// Executor fans work out over a service's hosts.
type Executor struct {
	transport   Transport
	defaults    Defaults
	parallelism int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithParallelism visits up to n hosts at once. n <= 1 keeps visits sequential.
func WithParallelism(n int) ExecutorOption {
	return func(e *Executor) {
		e.parallelism = n
	}
}

// NewExecutor returns an Executor sending commands through transport.
func NewExecutor(transport Transport, defaults Defaults, opts ...ExecutorOption) *Executor {
	e := &Executor{
		transport: transport,
		defaults:  defaults,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Defaults returns the user and port applied to host entries.
func (e *Executor) Defaults() Defaults { return e.defaults }

// Parallelism returns the configured host concurrency.
func (e *Executor) Parallelism() int { return e.parallelism }

// RunOnHosts calls fn once per host, in list order, with a context whose
// innermost frame is that host. A failing host does not stop the others.
// The result joins one *HostError per failed host, or is nil.
//
// An empty host list returns ErrNoHosts without calling fn.
func (e *Executor) RunOnHosts(ctx context.Context, hosts []config.HostTarget, fn func(ctx context.Context) error) error {
	if len(hosts) == 0 {
		return ErrNoHosts
	}

	if e.parallelism > 1 && len(hosts) > 1 {
		return e.runParallel(ctx, hosts, fn)
	}

	var errs []error
	for _, target := range hosts {
		if err := e.visit(ctx, target, fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Executor) runParallel(ctx context.Context, hosts []config.HostTarget, fn func(ctx context.Context) error) error {
	tasks := make([]async.Task, len(hosts))
	for i, target := range hosts {
		tasks[i] = async.Task{
			Name: target.Host,
			Func: func(ctx context.Context) error {
				return e.visit(ctx, target, fn)
			},
		}
	}

	var errs []error
	for i, err := range async.RunBounded(ctx, e.parallelism, tasks) {
		if err == nil {
			continue
		}
		// Panics surface from RunBounded without host attribution.
		var he *HostError
		if !errors.As(err, &he) {
			err = &HostError{Host: hosts[i].Host, Err: err}
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// OnHost calls fn with target as the innermost frame.
func (e *Executor) OnHost(ctx context.Context, target config.HostTarget, fn func(ctx context.Context) error) error {
	return e.visit(ctx, target, fn)
}

func (e *Executor) visit(ctx context.Context, target config.HostTarget, fn func(ctx context.Context) error) error {
	id, err := Normalize(target, e.defaults)
	if err != nil {
		return &HostError{Host: target.Host, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return &HostError{Host: id.String(), Err: err}
	}

	log := logr.FromContextOrDiscard(ctx).WithValues("host", id.String())
	if id.Label != "" {
		log = log.WithValues("label", id.Label)
	}
	hostCtx := logr.NewContext(WithFrame(ctx, id, NewBackend(e.transport, id)), log)

	log.V(1).Info("entering host")
	if err := fn(hostCtx); err != nil {
		return &HostError{Host: id.String(), Err: err}
	}
	return nil
}
