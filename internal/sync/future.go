package sync

import "errors"

var ErrFutureAlreadySet = errors.New("future already set")

// Future is a value that becomes available at some later point.
type Future[T any] interface {
	// Get returns the value if set, blocks otherwise
	Get(ctx Context) (T, error)
}

// SettableFuture is a Future whose value can be set exactly once.
type SettableFuture[T any] interface {
	Future[T]

	// Set stores the value and unblocks any waiting consumers
	Set(v T, err error) error
}

// FutureInternal allows non-blocking readiness checks.
type FutureInternal[T any] interface {
	Future[T]

	Ready() bool
}

func NewFuture[T any]() SettableFuture[T] {
	return &futureImpl[T]{}
}

type futureImpl[T any] struct {
	hasValue bool
	v        T
	err      error
}

var _ SettableFuture[struct{}] = (*futureImpl[struct{}])(nil)
var _ FutureInternal[struct{}] = (*futureImpl[struct{}])(nil)

func (f *futureImpl[T]) Set(v T, err error) error {
	if f.hasValue {
		return ErrFutureAlreadySet
	}

	f.v = v
	f.err = err
	f.hasValue = true

	return nil
}

func (f *futureImpl[T]) Get(ctx Context) (T, error) {
	cr := getCoState(ctx)

	for {
		if f.hasValue {
			cr.MadeProgress()

			return f.v, f.err
		}

		cr.Yield()
	}
}

func (f *futureImpl[T]) Ready() bool {
	return f.hasValue
}
