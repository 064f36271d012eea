package command

import (
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/core"
)

type ContinueAsNewCommand struct {
	command

	Instance *core.WorkflowInstance
	Name     string
	Metadata *metadata.WorkflowMetadata
	Inputs   []payload.Payload
	Result   payload.Payload

	// ContinuedInstance is set once the command has executed.
	ContinuedInstance *core.WorkflowInstance
}

var _ Command = (*ContinueAsNewCommand)(nil)

func NewContinueAsNewCommand(id int64, instance *core.WorkflowInstance, result payload.Payload, name string, metadata *metadata.WorkflowMetadata, inputs []payload.Payload) *ContinueAsNewCommand {
	return &ContinueAsNewCommand{
		command: command{
			id:    id,
			name:  "ContinueAsNew",
			state: CommandState_Pending,
		},
		Instance: instance,
		Name:     name,
		Metadata: metadata,
		Inputs:   inputs,
		Result:   result,
	}
}

func (c *ContinueAsNewCommand) Execute(clock clock.Clock) *CommandResult {
	switch c.state {
	case CommandState_Pending:
		c.state = CommandState_Committed

		continuedExecutionID := uuid.NewString()

		var continuedInstance *core.WorkflowInstance
		if c.Instance.SubWorkflow() {
			// Keep the parent link so the finished event of the new execution
			// reaches the right parent instance.
			continuedInstance = core.NewSubWorkflowInstance(
				c.Instance.InstanceID, continuedExecutionID, c.Instance.Parent, c.Instance.ParentEventID)
		} else {
			continuedInstance = core.NewWorkflowInstance(c.Instance.InstanceID, continuedExecutionID)
		}

		c.ContinuedInstance = continuedInstance

		return &CommandResult{
			State: core.WorkflowInstanceStateContinuedAsNew,
			Events: []*history.Event{
				// End the current workflow execution
				history.NewPendingEvent(
					clock.Now(),
					history.EventType_WorkflowExecutionContinuedAsNew,
					&history.ExecutionContinuedAsNewAttributes{
						Result:               c.Result,
						ContinuedExecutionID: continuedExecutionID,
					},
				),
			},
			WorkflowEvents: []*history.WorkflowEvent{
				// Schedule the new workflow execution
				{
					WorkflowInstance: continuedInstance,
					HistoryEvent: history.NewPendingEvent(
						clock.Now(),
						history.EventType_WorkflowExecutionStarted,
						&history.ExecutionStartedAttributes{
							Name:     c.Name,
							Metadata: c.Metadata,
							Inputs:   c.Inputs,
						},
					),
				},
			},
		}
	}

	return nil
}
