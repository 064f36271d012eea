package workflow

import (
	"time"

	"github.com/durableio/rewind/internal/command"
	"github.com/durableio/rewind/internal/sync"
	"github.com/durableio/rewind/internal/workflowstate"
)

type TimerOption func(*timerOptions)

type timerOptions struct {
	name string
}

// WithTimerName attaches a name to the timer, recorded in history for
// diagnostics.
func WithTimerName(name string) TimerOption {
	return func(o *timerOptions) {
		o.name = name
	}
}

// ScheduleTimer schedules a timer to fire after the given delay. The returned
// future resolves with Canceled if ctx is canceled before the timer fires.
func ScheduleTimer(ctx Context, delay time.Duration, opts ...TimerOption) Future[any] {
	options := &timerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	wfState := workflowstate.WorkflowState(ctx)

	scheduleEventID := wfState.GetNextScheduleEventID()
	timerCmd := command.NewScheduleTimerCommand(scheduleEventID, Now(ctx).Add(delay), options.name)
	wfState.AddCommand(timerCmd)

	f := sync.NewFuture[any]()
	wfState.TrackFuture(scheduleEventID, workflowstate.AsDecodingSettable[any](GetConverter(ctx), "timer", f))

	if d := ctx.Done(); d != nil {
		if c, ok := d.(sync.CancelChannel); ok {
			if c.Closed() {
				// Context is already canceled, don't schedule the timer at all
				wfState.RemoveCommand(timerCmd)
				wfState.RemoveFuture(scheduleEventID)
				f.Set(nil, sync.Canceled)

				return f
			}

			// The only operation on the Done channel is that it's closed when the
			// context is canceled.
			c.AddReceiveCallback(func(v struct{}, ok bool) {
				if fi, ok := f.(sync.FutureInternal[any]); ok && fi.Ready() {
					// Timer already fired
					return
				}

				switch timerCmd.State() {
				case command.CommandState_Pending:
					// Not yet committed to history, drop it silently
					timerCmd.Cancel()
					wfState.RemoveCommand(timerCmd)

				case command.CommandState_Committed:
					// The timer message is already scheduled, tell the backend to
					// remove it
					cancelScheduleEventID := wfState.GetNextScheduleEventID()
					wfState.AddCommand(command.NewCancelTimerCommand(cancelScheduleEventID, scheduleEventID))
				}

				wfState.RemoveFuture(scheduleEventID)
				f.Set(nil, sync.Canceled)
			})
		}
	}

	return f
}
