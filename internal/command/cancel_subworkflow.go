package command

import (
	"github.com/benbjohnson/clock"

	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/core"
)

// CancelSubWorkflowCommand requests cancellation of a sub-workflow whose
// schedule command completed in an earlier task.
type CancelSubWorkflowCommand struct {
	command

	SubWorkflowInstance *core.WorkflowInstance
}

var _ Command = (*CancelSubWorkflowCommand)(nil)

func NewCancelSubWorkflowCommand(id int64, subWorkflowInstance *core.WorkflowInstance) *CancelSubWorkflowCommand {
	return &CancelSubWorkflowCommand{
		command: command{
			id:    id,
			name:  "CancelSubWorkflow",
			state: CommandState_Pending,
		},
		SubWorkflowInstance: subWorkflowInstance,
	}
}

func (c *CancelSubWorkflowCommand) Execute(clock clock.Clock) *CommandResult {
	switch c.state {
	case CommandState_Pending:
		c.state = CommandState_Committed

		return &CommandResult{
			// Record that cancellation was requested
			Events: []*history.Event{
				history.NewPendingEvent(
					clock.Now(),
					history.EventType_SubWorkflowCancellationRequested,
					&history.SubWorkflowCancellationRequestedAttributes{
						SubWorkflowInstance: c.SubWorkflowInstance,
					},
					history.ScheduleEventID(c.id),
				),
			},

			// Send cancellation event to sub-workflow
			WorkflowEvents: []*history.WorkflowEvent{
				{
					WorkflowInstance: c.SubWorkflowInstance,
					HistoryEvent:     history.NewWorkflowCancellationEvent(clock.Now()),
				},
			},
		}
	}

	return nil
}
