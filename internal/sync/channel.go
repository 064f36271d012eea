package sync

// Channel is the workflow-safe equivalent of a Go channel. All operations have
// to be called from coroutines managed by the same scheduler.
type Channel[T any] interface {
	// Send sends the given value to the channel, blocking until a receiver is
	// ready or buffer capacity is available.
	Send(ctx Context, v T)

	// SendNonblocking attempts to send without blocking, returns whether the
	// value was sent.
	SendNonblocking(v T) (ok bool)

	// Receive receives a value from the channel, blocking until one is
	// available. ok is false if the channel is closed and drained.
	Receive(ctx Context) (v T, ok bool)

	// ReceiveNonBlocking attempts to receive without blocking.
	ReceiveNonBlocking() (v T, ok bool)

	// Close closes the channel. Blocked receivers are resumed with the zero
	// value and ok = false.
	Close()
}

// ChannelInternal exposes hooks used by the engine itself, for example to
// observe context cancellation without spawning a coroutine.
type ChannelInternal[T any] interface {
	Closed() bool

	// AddReceiveCallback registers a one-shot callback invoked the next time a
	// value is sent to or the channel is closed.
	AddReceiveCallback(cb func(v T, ok bool))

	ReceiveNonBlockingInternal() (v T, ok bool)
}

func NewChannel[T any]() Channel[T] {
	return &channel[T]{}
}

func NewBufferedChannel[T any](size int) Channel[T] {
	return &channel[T]{
		c:    make([]T, 0, size),
		size: size,
	}
}

type channel[T any] struct {
	c         []T
	receivers []func(v T, ok bool)
	senders   []func() T
	closed    bool
	size      int
}

var _ ChannelInternal[struct{}] = (*channel[struct{}])(nil)

func (c *channel[T]) Close() {
	if c.closed {
		return
	}

	c.closed = true

	// Wake up all blocked receivers
	for len(c.receivers) > 0 {
		r := c.receivers[0]
		c.receivers[0] = nil
		c.receivers = c.receivers[1:]

		var zero T
		r(zero, false)
	}
}

func (c *channel[T]) Closed() bool {
	return c.closed
}

func (c *channel[T]) AddReceiveCallback(cb func(v T, ok bool)) {
	if c.closed {
		var zero T
		cb(zero, false)
		return
	}

	c.receivers = append(c.receivers, cb)
}

func (c *channel[T]) Send(ctx Context, v T) {
	cr := getCoState(ctx)

	addedSender := false
	sentValue := false

	for {
		if c.trySend(v) {
			cr.MadeProgress()
			return
		}

		if !addedSender {
			addedSender = true

			cb := func() T {
				sentValue = true
				return v
			}

			c.senders = append(c.senders, cb)
		}

		cr.Yield()

		if sentValue {
			cr.MadeProgress()
			return
		}
	}
}

func (c *channel[T]) SendNonblocking(v T) bool {
	return c.trySend(v)
}

func (c *channel[T]) Receive(ctx Context) (T, bool) {
	cr := getCoState(ctx)

	addedListener := false
	receivedValue := false
	var rv T
	var rok bool

	for {
		// Try to receive from buffered channel or blocked sender
		if v, ok := c.tryReceive(); ok || c.closed {
			cr.MadeProgress()
			return v, ok
		}

		// Register handler to receive value once
		if !addedListener {
			cb := func(v T, ok bool) {
				receivedValue = true
				rv = v
				rok = ok
			}

			c.receivers = append(c.receivers, cb)
			addedListener = true
		}

		cr.Yield()

		// If we received a value via the callback, return
		if receivedValue {
			cr.MadeProgress()
			return rv, rok
		}
	}
}

func (c *channel[T]) ReceiveNonBlocking() (T, bool) {
	return c.tryReceive()
}

func (c *channel[T]) ReceiveNonBlockingInternal() (T, bool) {
	return c.tryReceive()
}

func (c *channel[T]) hasValue() bool {
	return len(c.c) > 0
}

func (c *channel[T]) canReceive() bool {
	return c.hasValue() || len(c.senders) > 0 || c.closed
}

func (c *channel[T]) trySend(v T) bool {
	// If closed, we can't send, exit.
	if c.closed {
		panic("channel closed")
	}

	// Are there any existing blocked receivers? If so, unblock the first one with
	// the value.
	if len(c.receivers) > 0 {
		r := c.receivers[0]
		c.receivers[0] = nil
		c.receivers = c.receivers[1:]
		r(v, true)
		return true
	}

	// No waiting receiver, if we have capacity try to add the value to the buffer
	if c.hasCapacity() {
		c.c = append(c.c, v)
		return true
	}

	// No receiver waiting and no capacity, we can't send.
	return false
}

func (c *channel[T]) tryReceive() (T, bool) {
	// If channel is buffered, return value if available
	if c.hasValue() {
		v := c.c[0]
		c.c = c.c[1:]

		return v, true
	}

	if len(c.senders) > 0 {
		s := c.senders[0]
		c.senders[0] = nil
		c.senders = c.senders[1:]

		return s(), true
	}

	// If channel has been closed and no values are left, return the zero
	// element
	var zero T
	return zero, false
}

func (c *channel[T]) hasCapacity() bool {
	return len(c.c) < c.size
}
