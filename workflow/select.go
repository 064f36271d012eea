package workflow

import "github.com/durableio/rewind/internal/sync"

type SelectCase = sync.SelectCase

// Select is the workflow-safe equivalent of the select statement. Cases are
// checked in the order given; the first ready case wins.
func Select(ctx Context, cases ...SelectCase) {
	sync.Select(ctx, cases...)
}

// AwaitFuture calls the provided handler when the given future is ready.
func AwaitFuture[T any](f Future[T], handler func(ctx Context, f Future[T])) SelectCase {
	return sync.Await(f, func(ctx sync.Context, f sync.Future[T]) {
		handler(ctx, f)
	})
}

// Receive calls the provided handler if the given channel can receive a value.
// The ok flag indicates whether a value was received or the channel was closed.
func Receive[T any](c Channel[T], handler func(ctx Context, v T, ok bool)) SelectCase {
	return sync.Receive(c, handler)
}

// Send calls the provided handler if the given value can be sent to the channel.
func Send[T any](c Channel[T], value *T, handler func(ctx Context)) SelectCase {
	return sync.Send(c, value, handler)
}

// Default calls the provided handler if none of the other cases are ready.
func Default(handler func(Context)) SelectCase {
	return sync.Default(handler)
}
