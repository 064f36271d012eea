package command

import (
	"github.com/benbjohnson/clock"

	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/internal/workflowerrors"
)

// RejectUpdateCommand records that an update request failed validation. No
// workflow state was modified and no handler ran.
type RejectUpdateCommand struct {
	command

	UpdateID string
	Error    *workflowerrors.Error
}

var _ Command = (*RejectUpdateCommand)(nil)

func NewRejectUpdateCommand(id int64, updateID string, err *workflowerrors.Error) *RejectUpdateCommand {
	return &RejectUpdateCommand{
		command: command{
			id:    id,
			name:  "RejectUpdate",
			state: CommandState_Pending,
		},
		UpdateID: updateID,
		Error:    err,
	}
}

func (c *RejectUpdateCommand) Execute(clock clock.Clock) *CommandResult {
	switch c.state {
	case CommandState_Pending:
		c.state = CommandState_Committed

		return &CommandResult{
			Events: []*history.Event{
				history.NewPendingEvent(
					clock.Now(),
					history.EventType_WorkflowUpdateRejected,
					&history.WorkflowUpdateRejectedAttributes{
						UpdateID: c.UpdateID,
						Error:    c.Error,
					},
					history.ScheduleEventID(c.id),
				),
			},
		}
	}

	return nil
}

// CompleteUpdateCommand records the outcome of an accepted update once its
// handler finished.
type CompleteUpdateCommand struct {
	command

	UpdateID string
	Result   payload.Payload
	Error    *workflowerrors.Error
}

var _ Command = (*CompleteUpdateCommand)(nil)

func NewCompleteUpdateCommand(id int64, updateID string, result payload.Payload, err *workflowerrors.Error) *CompleteUpdateCommand {
	return &CompleteUpdateCommand{
		command: command{
			id:    id,
			name:  "CompleteUpdate",
			state: CommandState_Pending,
		},
		UpdateID: updateID,
		Result:   result,
		Error:    err,
	}
}

func (c *CompleteUpdateCommand) Execute(clock clock.Clock) *CommandResult {
	switch c.state {
	case CommandState_Pending:
		c.state = CommandState_Committed

		return &CommandResult{
			Events: []*history.Event{
				history.NewPendingEvent(
					clock.Now(),
					history.EventType_WorkflowUpdateCompleted,
					&history.WorkflowUpdateCompletedAttributes{
						UpdateID: c.UpdateID,
						Result:   c.Result,
						Error:    c.Error,
					},
					history.ScheduleEventID(c.id),
				),
			},
		}
	}

	return nil
}
