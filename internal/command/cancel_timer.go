package command

import (
	"github.com/benbjohnson/clock"

	"github.com/durableio/rewind/backend/history"
)

// CancelTimerCommand removes a previously scheduled timer. Used when a timer
// committed in an earlier task is canceled later on.
type CancelTimerCommand struct {
	command

	TimerScheduleEventID int64
}

var _ Command = (*CancelTimerCommand)(nil)

func NewCancelTimerCommand(id int64, timerScheduleEventID int64) *CancelTimerCommand {
	return &CancelTimerCommand{
		command: command{
			id:    id,
			name:  "CancelTimer",
			state: CommandState_Pending,
		},
		TimerScheduleEventID: timerScheduleEventID,
	}
}

func (c *CancelTimerCommand) Execute(clock clock.Clock) *CommandResult {
	switch c.state {
	case CommandState_Pending:
		c.state = CommandState_Committed

		return &CommandResult{
			Events: []*history.Event{
				history.NewPendingEvent(
					clock.Now(),
					history.EventType_TimerCanceled,
					&history.TimerCanceledAttributes{},
					history.ScheduleEventID(c.TimerScheduleEventID),
				),
			},
		}
	}

	return nil
}
