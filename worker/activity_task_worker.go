package worker

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/metrics"
	"github.com/durableio/rewind/internal/activity"
	im "github.com/durableio/rewind/internal/metrics"
	"github.com/durableio/rewind/internal/metrickeys"
	internal "github.com/durableio/rewind/internal/worker"
	"github.com/durableio/rewind/internal/workflowerrors"
	"github.com/durableio/rewind/registry"
)

type ActivityWorker = internal.Worker[backend.ActivityTask, history.Event]

type activityTaskWorker struct {
	backend  backend.Backend
	executor *activity.Executor
	clock    clock.Clock
}

func NewActivityTaskWorker(
	b backend.Backend,
	r *registry.Registry,
	options *Options,
) *ActivityWorker {
	tw := &activityTaskWorker{
		backend:  b,
		executor: activity.NewExecutor(b.Options().Logger, b.Tracer(), b.Options().Converter, r),
		clock:    clock.New(),
	}

	return internal.NewWorker(b, tw, &internal.Options{
		Pollers:          options.ActivityPollers,
		PollingInterval:  options.ActivityPollingInterval,
		MaxParallelTasks: options.MaxParallelActivityTasks,
	})
}

func (atw *activityTaskWorker) Get(ctx context.Context) (*backend.ActivityTask, error) {
	return atw.backend.GetActivityTask(ctx)
}

func (atw *activityTaskWorker) Execute(
	ctx context.Context, t *backend.ActivityTask,
) (*history.Event, error) {
	timer := im.NewTimer(atw.backend.Metrics(), metrickeys.ActivityTaskProcessed, metrics.Tags{})
	defer timer.Stop()

	result, err := atw.executor.ExecuteActivity(ctx, t)

	var event *history.Event
	if err != nil {
		event = history.NewPendingEvent(
			atw.clock.Now(),
			history.EventType_ActivityFailed,
			&history.ActivityFailedAttributes{
				Error: workflowerrors.FromError(err),
			},
			history.ScheduleEventID(t.Event.ScheduleEventID),
		)
	} else {
		event = history.NewPendingEvent(
			atw.clock.Now(),
			history.EventType_ActivityCompleted,
			&history.ActivityCompletedAttributes{
				Result: result,
			},
			history.ScheduleEventID(t.Event.ScheduleEventID),
		)
	}

	return event, nil
}

func (atw *activityTaskWorker) Complete(
	ctx context.Context, event *history.Event, t *backend.ActivityTask,
) error {
	if err := atw.backend.CompleteActivityTask(ctx, t, event); err != nil {
		return fmt.Errorf("completing activity task: %w", err)
	}

	return nil
}

var _ internal.TaskWorker[backend.ActivityTask, history.Event] = (*activityTaskWorker)(nil)
