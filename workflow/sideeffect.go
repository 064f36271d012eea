package workflow

import (
	"github.com/durableio/rewind/internal/command"
	"github.com/durableio/rewind/internal/sync"
	"github.com/durableio/rewind/internal/workflowstate"
)

// SideEffect executes the given function exactly once and records its result
// in history. During replay the recorded result is returned instead of running
// the function again. Use it for small non-deterministic values; anything
// fallible or slow belongs in an activity.
func SideEffect[TResult any](ctx Context, f func(ctx Context) TResult) Future[TResult] {
	future := sync.NewFuture[TResult]()

	if ctx.Err() != nil {
		future.Set(*new(TResult), ctx.Err())
		return future
	}

	cv := GetConverter(ctx)

	wfState := workflowstate.WorkflowState(ctx)
	scheduleEventID := wfState.GetNextScheduleEventID()

	if Replaying(ctx) {
		// History contains the recorded result, block on it
		wfState.TrackFuture(scheduleEventID, workflowstate.AsDecodingSettable(cv, "sideeffect", future))
		return future
	}

	// Execute side effect
	r := f(ctx)

	payload, err := cv.To(r)
	if err != nil {
		future.Set(*new(TResult), err)
		return future
	}

	wfState.AddCommand(command.NewSideEffectCommand(scheduleEventID, payload))

	future.Set(r, nil)

	return future
}
