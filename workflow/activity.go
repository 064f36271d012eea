package workflow

import (
	"fmt"

	a "github.com/durableio/rewind/internal/args"
	"github.com/durableio/rewind/internal/command"
	"github.com/durableio/rewind/internal/fn"
	"github.com/durableio/rewind/internal/sync"
	"github.com/durableio/rewind/internal/workflowstate"
)

type ActivityOptions struct {
	RetryOptions RetryOptions
}

var DefaultActivityOptions = ActivityOptions{
	RetryOptions: DefaultRetryOptions,
}

// ExecuteActivity schedules the given activity to be executed.
func ExecuteActivity[TResult any](ctx Context, options ActivityOptions, activity Activity, args ...interface{}) Future[TResult] {
	return WithRetries(ctx, options.RetryOptions, func(ctx Context, attempt int) Future[TResult] {
		return executeActivity[TResult](ctx, activity, args...)
	})
}

func executeActivity[TResult any](ctx Context, activity Activity, args ...interface{}) Future[TResult] {
	f := sync.NewFuture[TResult]()

	if ctx.Err() != nil {
		f.Set(*new(TResult), ctx.Err())
		return f
	}

	// Check arguments against the activity signature before scheduling
	if err := a.ParamsMatch(activity, args...); err != nil {
		f.Set(*new(TResult), err)
		return f
	}

	cv := GetConverter(ctx)
	inputs, err := a.ArgsToInputs(cv, args...)
	if err != nil {
		f.Set(*new(TResult), fmt.Errorf("converting activity input: %w", err))
		return f
	}

	wfState := workflowstate.WorkflowState(ctx)
	scheduleEventID := wfState.GetNextScheduleEventID()

	name := fn.Name(activity)
	cmd := command.NewScheduleActivityCommand(scheduleEventID, name, inputs)
	wfState.AddCommand(cmd)
	wfState.TrackFuture(scheduleEventID, workflowstate.AsDecodingSettable(cv, name, f))

	// Handle cancellation
	if d := ctx.Done(); d != nil {
		if c, ok := d.(sync.CancelChannel); ok && c.Closed() {
			// Workflow has been canceled, check if the activity has already
			// been scheduled, no need to schedule otherwise
			if cmd.State() == command.CommandState_Pending {
				cmd.Done()
				wfState.RemoveCommand(cmd)
				wfState.RemoveFuture(scheduleEventID)
				f.Set(*new(TResult), sync.Canceled)
			}
		}
	}

	return f
}
