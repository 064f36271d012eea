package worker

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/metrics"
	"github.com/durableio/rewind/core"
	im "github.com/durableio/rewind/internal/metrics"
	"github.com/durableio/rewind/internal/metrickeys"
	internal "github.com/durableio/rewind/internal/worker"
	"github.com/durableio/rewind/registry"
	"github.com/durableio/rewind/workflow/executor"
)

type WorkflowWorker = internal.Worker[backend.WorkflowTask, executor.ExecutionResult]

type workflowTaskWorker struct {
	backend backend.Backend
	options *Options

	registry *registry.Registry
	cache    executor.ExecutorCache
	clock    clock.Clock
}

func NewWorkflowTaskWorker(
	b backend.Backend,
	r *registry.Registry,
	c executor.ExecutorCache,
	options *Options,
) *WorkflowWorker {
	tw := &workflowTaskWorker{
		backend:  b,
		options:  options,
		registry: r,
		cache:    c,
		clock:    clock.New(),
	}

	return internal.NewWorker(b, tw, &internal.Options{
		Pollers:          options.WorkflowPollers,
		PollingInterval:  options.WorkflowPollingInterval,
		MaxParallelTasks: options.MaxParallelWorkflowTasks,
	})
}

func (wtw *workflowTaskWorker) Get(ctx context.Context) (*backend.WorkflowTask, error) {
	return wtw.backend.GetWorkflowTask(ctx)
}

func (wtw *workflowTaskWorker) Execute(
	ctx context.Context, t *backend.WorkflowTask,
) (*executor.ExecutionResult, error) {
	timer := im.NewTimer(wtw.backend.Metrics(), metrickeys.WorkflowTaskProcessed, metrics.Tags{})
	defer timer.Stop()

	e, err := wtw.getExecutor(ctx, t)
	if err != nil {
		return nil, err
	}

	result, err := e.ExecuteTask(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("executing workflow task: %w", err)
	}

	if result.State != core.WorkflowInstanceStateActive {
		// Evicting closes the executor, so the workflow goroutines are stopped
		if err := wtw.cache.Evict(ctx, t.WorkflowInstance); err != nil {
			return nil, fmt.Errorf("evicting workflow executor: %w", err)
		}
	}

	return result, nil
}

func (wtw *workflowTaskWorker) Complete(
	ctx context.Context, result *executor.ExecutionResult, t *backend.WorkflowTask,
) error {
	if err := wtw.backend.CompleteWorkflowTask(
		ctx, t, result.State, result.Executed, result.ActivityEvents, result.TimerEvents, result.WorkflowEvents,
	); err != nil {
		return fmt.Errorf("completing workflow task: %w", err)
	}

	return nil
}

func (wtw *workflowTaskWorker) getExecutor(
	ctx context.Context, t *backend.WorkflowTask,
) (executor.WorkflowExecutor, error) {
	if e, ok, err := wtw.cache.Get(ctx, t.WorkflowInstance); err != nil {
		wtw.backend.Options().Logger.ErrorContext(
			ctx, "could not get cached workflow executor", "error", err)
	} else if ok {
		return e, nil
	}

	e, err := executor.NewExecutor(
		wtw.backend.Options().Logger.With(
			"instance_id", t.WorkflowInstance.InstanceID,
			"execution_id", t.WorkflowInstance.ExecutionID,
		),
		wtw.backend.Tracer(),
		wtw.registry,
		wtw.backend.Options().Converter,
		wtw.backend,
		t.WorkflowInstance,
		t.Metadata,
		wtw.clock,
		&executor.Options{
			DeadlockBudget: wtw.options.DeadlockBudget,
			MaxHistorySize: wtw.options.MaxHistorySize,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating workflow executor: %w", err)
	}

	if err := wtw.cache.Store(ctx, t.WorkflowInstance, e); err != nil {
		wtw.backend.Options().Logger.ErrorContext(
			ctx, "could not cache workflow executor", "error", err)
	}

	return e, nil
}

var _ internal.TaskWorker[backend.WorkflowTask, executor.ExecutionResult] = (*workflowTaskWorker)(nil)
