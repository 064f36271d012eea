package sync

// AwaitCondition blocks the calling coroutine until cond returns true. The
// condition is re-evaluated whenever the scheduler observed progress during a
// pass, so cond must only depend on workflow state.
//
// Returns the context error if ctx is canceled before cond holds.
func AwaitCondition(ctx Context, cond func() bool) error {
	cs := getCoState(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if cond() {
			cs.MadeProgress()
			return nil
		}

		cs.Yield()
	}
}
