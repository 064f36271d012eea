package workflow

import (
	"time"

	"github.com/durableio/rewind/internal/sync"
)

// Await blocks the workflow until cond returns true. The condition is
// re-evaluated whenever the workflow makes progress, so it must only depend on
// workflow state. Returns the context error if ctx is canceled first.
func Await(ctx Context, cond func() bool) error {
	return sync.AwaitCondition(ctx, cond)
}

// AwaitWithTimeout blocks the workflow until cond returns true or the timeout
// elapses, whichever happens first. It returns true if the condition was met.
// The underlying timer is canceled when the condition wins.
func AwaitWithTimeout(ctx Context, timeout time.Duration, cond func() bool) (bool, error) {
	tctx, cancel := WithCancel(ctx)
	defer cancel()

	t := ScheduleTimer(tctx, timeout).(sync.FutureInternal[any])

	if err := sync.AwaitCondition(ctx, func() bool {
		return cond() || t.Ready()
	}); err != nil {
		return false, err
	}

	// Condition wins ties with the timer
	return cond(), nil
}
