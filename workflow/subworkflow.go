package workflow

import (
	"fmt"

	a "github.com/durableio/rewind/internal/args"
	"github.com/durableio/rewind/internal/command"
	"github.com/durableio/rewind/internal/contextvalue"
	"github.com/durableio/rewind/internal/fn"
	"github.com/durableio/rewind/internal/sync"
	"github.com/durableio/rewind/internal/workflowstate"
)

type SubWorkflowOptions struct {
	// InstanceID for the new sub-workflow instance. Generated if empty.
	InstanceID string

	RetryOptions RetryOptions
}

var DefaultSubWorkflowOptions = SubWorkflowOptions{
	RetryOptions: DefaultRetryOptions,
}

// CreateSubWorkflowInstance creates a new sub-workflow instance of the given
// workflow. The returned future resolves once the sub-workflow has finished.
func CreateSubWorkflowInstance[TResult any](ctx Context, options SubWorkflowOptions, workflow Workflow, args ...interface{}) Future[TResult] {
	return WithRetries(ctx, options.RetryOptions, func(ctx Context, attempt int) Future[TResult] {
		return createSubWorkflowInstance[TResult](ctx, options, workflow, args...)
	})
}

func createSubWorkflowInstance[TResult any](ctx Context, options SubWorkflowOptions, workflow Workflow, args ...interface{}) Future[TResult] {
	f := sync.NewFuture[TResult]()

	if ctx.Err() != nil {
		f.Set(*new(TResult), ctx.Err())
		return f
	}

	cv := GetConverter(ctx)
	inputs, err := a.ArgsToInputs(cv, args...)
	if err != nil {
		f.Set(*new(TResult), fmt.Errorf("converting sub-workflow input: %w", err))
		return f
	}

	wfState := workflowstate.WorkflowState(ctx)
	scheduleEventID := wfState.GetNextScheduleEventID()

	name := workflowName(workflow)
	cmd := command.NewScheduleSubWorkflowCommand(
		scheduleEventID, wfState.Instance(), options.InstanceID, name, inputs, contextvalue.WorkflowMetadata(ctx))
	wfState.AddCommand(cmd)
	wfState.TrackFuture(scheduleEventID, workflowstate.AsDecodingSettable(cv, name, f))

	// Handle cancellation
	if d := ctx.Done(); d != nil {
		if c, ok := d.(sync.CancelChannel); ok {
			if c.Closed() {
				// Context already canceled, don't schedule the sub-workflow
				if cmd.State() == command.CommandState_Pending {
					cmd.Cancel()
					wfState.RemoveCommand(cmd)
					wfState.RemoveFuture(scheduleEventID)
					f.Set(*new(TResult), sync.Canceled)
				}

				return f
			}

			c.AddReceiveCallback(func(v struct{}, ok bool) {
				switch cmd.State() {
				case command.CommandState_Pending:
					// Not scheduled yet, drop silently
					cmd.Cancel()
					wfState.RemoveCommand(cmd)
					wfState.RemoveFuture(scheduleEventID)
					f.Set(*new(TResult), sync.Canceled)

				case command.CommandState_Committed:
					// The sub-workflow is running; request its cancellation and
					// leave the future pending until it finishes.
					if wfState.CommandByScheduleEventID(scheduleEventID) != nil {
						cmd.Cancel()
					} else {
						cancelScheduleEventID := wfState.GetNextScheduleEventID()
						wfState.AddCommand(command.NewCancelSubWorkflowCommand(cancelScheduleEventID, cmd.Instance))
					}
				}
			})
		}
	}

	return f
}

func workflowName(workflow Workflow) string {
	if name, ok := workflow.(string); ok {
		return name
	}

	return fn.Name(workflow)
}
