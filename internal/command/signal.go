package command

import (
	"github.com/benbjohnson/clock"

	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/core"
)

// SignalWorkflowCommand delivers a signal to another workflow instance.
type SignalWorkflowCommand struct {
	command

	Instance *core.WorkflowInstance

	Name string
	Arg  payload.Payload
}

var _ Command = (*SignalWorkflowCommand)(nil)

func NewSignalWorkflowCommand(id int64, workflowInstanceID, name string, arg payload.Payload) *SignalWorkflowCommand {
	return &SignalWorkflowCommand{
		command: command{
			id:    id,
			name:  "SignalWorkflow",
			state: CommandState_Pending,
		},

		Instance: core.NewWorkflowInstance(workflowInstanceID, ""),

		Name: name,
		Arg:  arg,
	}
}

func (c *SignalWorkflowCommand) Execute(clock clock.Clock) *CommandResult {
	switch c.state {
	case CommandState_Pending:
		c.state = CommandState_Committed

		return &CommandResult{
			// Record that the signal was requested
			Events: []*history.Event{
				history.NewPendingEvent(
					clock.Now(),
					history.EventType_SignalWorkflow,
					&history.SignalWorkflowAttributes{
						Name: c.Name,
						Arg:  c.Arg,
					},
					history.ScheduleEventID(c.id),
				),
			},
			// Send event to the target workflow instance
			WorkflowEvents: []*history.WorkflowEvent{
				{
					WorkflowInstance: c.Instance,
					HistoryEvent: history.NewPendingEvent(
						clock.Now(),
						history.EventType_SignalReceived,
						&history.SignalReceivedAttributes{
							Name: c.Name,
							Arg:  c.Arg,
						},
					),
				},
			},
		}
	}

	return nil
}
