package sync

// ErrGroup is a group of coroutines working on subtasks of a common task. A
// zero ErrGroup is valid, but its coroutines are not canceled on error.
type ErrGroup struct {
	cancel CancelFunc
	errd   bool
	err    error

	creator CoroutineCreator

	wg WaitGroup
}

// WithErrGroup returns a new ErrGroup and an associated Context derived from
// ctx. The derived Context is canceled the first time a function passed to Go
// returns a non-nil error or the first time Wait returns, whichever occurs
// first.
func WithErrGroup(ctx Context) (*ErrGroup, Context) {
	ctx, cancel := WithCancel(ctx)

	return &ErrGroup{
		cancel:  cancel,
		wg:      NewWaitGroup(),
		creator: getCoState(ctx).creator,
	}, ctx
}

// Go calls the given function in a new coroutine.
//
// The first call to return a non-nil error cancels the group; its error will
// be returned by Wait.
func (g *ErrGroup) Go(ctx Context, f func(ctx Context) error) {
	g.wg.Add(1)

	g.creator.NewCoroutine(ctx, func(ctx Context) error {
		defer g.wg.Done()

		if err := f(ctx); err != nil {
			if !g.errd {
				g.errd = true
				g.err = err

				if g.cancel != nil {
					g.cancel()
				}
			}
		}

		return nil
	})
}

// Wait blocks until all coroutines started via Go have returned, then returns
// the first non-nil error (if any) from them.
func (g *ErrGroup) Wait(ctx Context) error {
	g.wg.Wait(ctx)

	if g.cancel != nil {
		g.cancel()
	}

	return g.err
}
