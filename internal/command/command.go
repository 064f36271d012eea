package command

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/core"
)

// Command records an intent produced by workflow code during a task execution.
// Commands start out Pending. Execute transitions them and yields the events
// to persist; during replay, recorded events are matched against regenerated
// commands instead of executing them again.
type Command interface {
	ID() int64

	// Type names the kind of command, for example "ScheduleTimer". Some
	// commands carry a Name field of their own, so this is a method with a
	// distinct name.
	Type() string

	State() CommandState

	// Execute executes the command in its current state and returns the
	// resulting state transition. Returns nil if the command has nothing to do
	// in its current state.
	Execute(clock clock.Clock) *CommandResult

	// Commit transitions the command to Committed without producing events.
	// Used during replay when the recorded history already contains the
	// command's events.
	Commit()

	// Done marks the command as done. Its effects have been applied to the
	// workflow state and no further events will be produced.
	Done()
}

type CommandResult struct {
	// State the workflow instance transitions to as a result of this command.
	State core.WorkflowInstanceState

	// Events to add to the instance history.
	Events []*history.Event

	// ActivityEvents to deliver to activity workers.
	ActivityEvents []*history.Event

	// TimerEvents to schedule for future delivery to this instance.
	TimerEvents []*history.Event

	// WorkflowEvents to deliver to other workflow instances.
	WorkflowEvents []*history.WorkflowEvent
}

type command struct {
	id    int64
	name  string
	state CommandState
}

func (c *command) ID() int64 {
	return c.id
}

func (c *command) Type() string {
	return c.name
}

func (c *command) State() CommandState {
	return c.state
}

func (c *command) Commit() {
	switch c.state {
	case CommandState_Pending:
		c.state = CommandState_Committed
	default:
		c.invalidStateTransition(CommandState_Committed)
	}
}

func (c *command) Done() {
	switch c.state {
	case CommandState_Pending, CommandState_Committed:
		c.state = CommandState_Done
	default:
		c.invalidStateTransition(CommandState_Done)
	}
}

func (c *command) invalidStateTransition(to CommandState) {
	panic(fmt.Sprintf("invalid state transition for command %s: %s -> %s", c.name, c.state, to))
}
