package sync

// WaitGroup waits for a collection of coroutines to finish.
type WaitGroup interface {
	// Add adds delta to the WaitGroup counter.
	Add(delta int)

	// Done decrements the WaitGroup counter by one.
	Done()

	// Wait blocks until the WaitGroup counter is zero.
	Wait(ctx Context)
}

func NewWaitGroup() WaitGroup {
	return &waitGroup{}
}

type waitGroup struct {
	counter int
}

func (wg *waitGroup) Add(delta int) {
	wg.counter += delta

	if wg.counter < 0 {
		panic("negative WaitGroup counter")
	}
}

func (wg *waitGroup) Done() {
	wg.Add(-1)
}

func (wg *waitGroup) Wait(ctx Context) {
	cs := getCoState(ctx)

	for wg.counter > 0 {
		cs.Yield()
	}

	cs.MadeProgress()
}
