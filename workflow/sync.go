package workflow

import (
	"github.com/durableio/rewind/internal/sync"
)

type (
	Context    = sync.Context
	CancelFunc = sync.CancelFunc

	WaitGroup = sync.WaitGroup
	ErrGroup  = sync.ErrGroup
)

// Canceled is the error returned when a workflow context is canceled.
var Canceled = sync.Canceled

// Go spawns the given function as a new coroutine. It starts executing at the
// end of the current scheduler pass, after all previously created coroutines.
func Go(ctx Context, f func(ctx Context)) {
	sync.Go(ctx, f)
}

// NewWaitGroup creates a WaitGroup to wait for a collection of coroutines.
func NewWaitGroup() WaitGroup {
	return sync.NewWaitGroup()
}

// WithErrGroup returns an ErrGroup and a derived Context that is canceled the
// first time a function passed to Go returns a non-nil error.
func WithErrGroup(ctx Context) (*ErrGroup, Context) {
	return sync.WithErrGroup(ctx)
}
