package workflow

import (
	"fmt"

	"github.com/durableio/rewind/internal/command"
	"github.com/durableio/rewind/internal/workflowstate"
)

// NewSignalChannel returns the channel signals with the given name are
// delivered to. Signals that arrived before the channel was created are
// buffered and received in arrival order.
func NewSignalChannel[T any](ctx Context, name string) Channel[T] {
	wfState := workflowstate.WorkflowState(ctx)
	return workflowstate.GetSignalChannel[T](ctx, wfState, name)
}

// SignalWorkflow delivers a signal to another workflow instance. Delivery is
// asynchronous; an error is only returned if the argument cannot be converted.
func SignalWorkflow(ctx Context, instanceID, name string, arg interface{}) error {
	input, err := GetConverter(ctx).To(arg)
	if err != nil {
		return fmt.Errorf("converting signal argument: %w", err)
	}

	wfState := workflowstate.WorkflowState(ctx)
	scheduleEventID := wfState.GetNextScheduleEventID()

	wfState.AddCommand(command.NewSignalWorkflowCommand(scheduleEventID, instanceID, name, input))

	return nil
}
