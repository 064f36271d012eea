package command

type CancelableCommand interface {
	Command

	// Cancel cancels the command. A Pending command is canceled silently; a
	// Committed command transitions to CancelPending and produces its
	// cancellation events on the next Execute.
	Cancel()

	// HandleCancel applies a recorded cancellation during replay.
	HandleCancel()
}

type cancelableCommand struct {
	command

	whenDone func()
}

func (c *cancelableCommand) Cancel() {
	switch c.state {
	case CommandState_Pending, CommandState_Canceled:
		c.state = CommandState_Canceled
	case CommandState_Committed:
		c.state = CommandState_CancelPending
	default:
		c.invalidStateTransition(CommandState_Canceled)
	}
}

func (c *cancelableCommand) HandleCancel() {
	switch c.state {
	// Committed covers cancellations recorded by a separate cancel command,
	// CancelPending covers the command producing its own cancellation events.
	case CommandState_Committed, CommandState_CancelPending:
		c.state = CommandState_Canceled
	default:
		c.invalidStateTransition(CommandState_Canceled)
	}
}

func (c *cancelableCommand) Done() {
	switch c.state {
	case CommandState_Committed, CommandState_Canceled:
		c.state = CommandState_Done

		if c.whenDone != nil {
			c.whenDone()
		}
	default:
		c.invalidStateTransition(CommandState_Done)
	}
}

// WhenDone registers a callback invoked when the command transitions to Done.
func (c *cancelableCommand) WhenDone(f func()) {
	c.whenDone = f
}
