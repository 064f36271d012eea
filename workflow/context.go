package workflow

import "github.com/durableio/rewind/internal/sync"

// WithCancel returns a copy of parent with a new Done channel. The returned
// context's Done channel is closed when the returned cancel function is called
// or when the parent context's Done channel is closed, whichever happens first.
func WithCancel(parent Context) (ctx Context, cancel CancelFunc) {
	return sync.WithCancel(parent)
}

// WithValue returns a copy of parent in which the value associated with key is
// val.
func WithValue(parent Context, key, val interface{}) Context {
	return sync.WithValue(parent, key, val)
}

// NewDisconnectedContext returns a context that inherits values from ctx but
// not its cancellation. Use it for cleanup work that has to run while the
// instance is being canceled.
func NewDisconnectedContext(ctx Context) Context {
	return sync.NewDisconnectedContext(ctx)
}
