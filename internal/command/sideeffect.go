package command

import (
	"github.com/benbjohnson/clock"

	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/payload"
)

type SideEffectCommand struct {
	command

	Result payload.Payload
}

var _ Command = (*SideEffectCommand)(nil)

func NewSideEffectCommand(id int64, result payload.Payload) *SideEffectCommand {
	return &SideEffectCommand{
		command: command{
			id:    id,
			name:  "SideEffect",
			state: CommandState_Pending,
		},
		Result: result,
	}
}

func (c *SideEffectCommand) Execute(clock clock.Clock) *CommandResult {
	switch c.state {
	case CommandState_Pending:
		c.state = CommandState_Committed

		return &CommandResult{
			Events: []*history.Event{
				history.NewPendingEvent(
					clock.Now(),
					history.EventType_SideEffectResult,
					&history.SideEffectResultAttributes{
						Result: c.Result,
					},
					history.ScheduleEventID(c.id),
				),
			},
		}
	}

	return nil
}
