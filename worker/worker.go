package worker

import (
	"context"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/registry"
	"github.com/durableio/rewind/workflow/executor"
	"github.com/durableio/rewind/workflow/executor/cache"
)

type taskWorker interface {
	Start(ctx context.Context) error
	WaitForCompletion() error
}

// Worker polls the backend for workflow and activity tasks and executes them
// with the registered workflows and activities.
type Worker struct {
	backend backend.Backend

	registry *registry.Registry

	cache executor.ExecutorCache

	workers []taskWorker
}

// New creates a worker for the given backend.
func New(b backend.Backend, options *Options) *Worker {
	if options == nil {
		options = &DefaultOptions
	}

	r := registry.New()

	c := options.WorkflowExecutorCache
	if c == nil {
		c = cache.NewWorkflowExecutorLRUCache(
			b.Metrics(), options.WorkflowExecutorCacheSize, options.WorkflowExecutorCacheTTL)
	}

	return &Worker{
		backend:  b,
		registry: r,
		cache:    c,
		workers: []taskWorker{
			NewWorkflowTaskWorker(b, r, c, options),
			NewActivityTaskWorker(b, r, options),
		},
	}
}

// Start starts the worker. The given context lives for the lifetime of the
// worker, cancel it to initiate a shutdown.
func (w *Worker) Start(ctx context.Context) error {
	go w.cache.StartEviction(ctx)

	for _, worker := range w.workers {
		if err := worker.Start(ctx); err != nil {
			return err
		}
	}

	return nil
}

// WaitForCompletion blocks until all in-progress tasks have finished. Call
// after the context passed to Start has been canceled.
func (w *Worker) WaitForCompletion() error {
	for _, worker := range w.workers {
		if err := worker.WaitForCompletion(); err != nil {
			return err
		}
	}

	return nil
}

// RegisterWorkflow registers a workflow with the worker's registry.
func (w *Worker) RegisterWorkflow(workflow interface{}, opts ...registry.RegisterOption) error {
	return w.registry.RegisterWorkflow(workflow, opts...)
}

// RegisterActivity registers an activity with the worker's registry.
func (w *Worker) RegisterActivity(activity interface{}, opts ...registry.RegisterOption) error {
	return w.registry.RegisterActivity(activity, opts...)
}
