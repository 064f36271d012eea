package sync

// Go spawns a new coroutine under the scheduler that runs the calling
// coroutine. It becomes runnable at the end of the current pass.
func Go(ctx Context, f func(ctx Context)) {
	cs := getCoState(ctx)

	cs.creator.NewCoroutine(ctx, func(ctx Context) error {
		f(ctx)

		return nil
	})
}
