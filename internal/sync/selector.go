package sync

// SelectCase is a single case of a Select call.
type SelectCase interface {
	// Ready returns whether this case could be handled without blocking.
	Ready() bool

	// Handle handles this case.
	Handle(Context)
}

// Select is the workflow-safe equivalent of the select statement. Cases are
// checked in the order given; the first ready case wins, which keeps the
// outcome of racing suspension sources deterministic.
func Select(ctx Context, cases ...SelectCase) {
	cs := getCoState(ctx)

	for {
		for _, c := range cases {
			if c.Ready() {
				c.Handle(ctx)
				cs.MadeProgress()
				return
			}
		}

		cs.Yield()
	}
}

// Await calls the provided handler when the given future is ready.
func Await[T any](f Future[T], handler func(ctx Context, f Future[T])) SelectCase {
	return &futureCase[T]{
		f:  f.(FutureInternal[T]),
		fn: handler,
	}
}

// Receive calls the provided handler if the given channel can receive a value.
func Receive[T any](c Channel[T], handler func(ctx Context, v T, ok bool)) SelectCase {
	return &channelCase[T]{
		c:  c.(*channel[T]),
		fn: handler,
	}
}

// Send calls the provided handler if the given value can be sent to the channel.
func Send[T any](c Channel[T], value *T, handler func(ctx Context)) SelectCase {
	return &sendCase[T]{
		c:     c.(*channel[T]),
		value: value,
		fn:    handler,
	}
}

// Default calls the provided handler if none of the other cases are ready.
func Default(handler func(Context)) SelectCase {
	return &defaultCase{
		fn: handler,
	}
}

type futureCase[T any] struct {
	f  FutureInternal[T]
	fn func(Context, Future[T])
}

func (fc *futureCase[T]) Ready() bool {
	return fc.f.Ready()
}

func (fc *futureCase[T]) Handle(ctx Context) {
	fc.fn(ctx, fc.f)
}

type channelCase[T any] struct {
	c  *channel[T]
	fn func(Context, T, bool)
}

func (cc *channelCase[T]) Ready() bool {
	return cc.c.canReceive()
}

func (cc *channelCase[T]) Handle(ctx Context) {
	v, ok := cc.c.tryReceive()
	cc.fn(ctx, v, ok)
}

type sendCase[T any] struct {
	c     *channel[T]
	value *T
	fn    func(Context)
}

func (sc *sendCase[T]) Ready() bool {
	return sc.c.hasCapacity() || len(sc.c.receivers) > 0
}

func (sc *sendCase[T]) Handle(ctx Context) {
	if !sc.c.trySend(*sc.value) {
		panic("send case was ready but could not send")
	}

	sc.fn(ctx)
}

type defaultCase struct {
	fn func(Context)
}

func (dc *defaultCase) Ready() bool {
	return true
}

func (dc *defaultCase) Handle(ctx Context) {
	dc.fn(ctx)
}
