package sync

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

// DefaultDeadlockBudget bounds how long a single coroutine may execute without
// yielding back to the scheduler. A coroutine that is merely blocked does not
// consume any budget; only actively running code does. Exceeding the budget
// therefore always means non-yielding workflow code, never a pending external
// resolution.
const DefaultDeadlockBudget = 40 * time.Second

var ErrCoroutineAlreadyFinished = errors.New("coroutine already finished")

// DeadlockError is reported when workflow code runs past the deadlock budget
// without reaching a suspension point. It is fatal for the task execution; a
// retry against the same history will deterministically hit the same bound.
type DeadlockError struct {
	Budget time.Duration
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("workflow did not yield within %v, likely stuck in a non-yielding loop", e.Budget)
}

type CoroutineCreator interface {
	NewCoroutine(ctx Context, fn func(Context) error)
}

type Coroutine interface {
	// Execute continues execution of a blocked coroutine and waits until
	// it is finished or blocked again. It returns a *DeadlockError if the
	// coroutine ran past its deadlock budget without yielding.
	Execute() error

	// Yield yields execution and stops coroutine execution
	Yield()

	// Exit prevents a _blocked_ Coroutine from continuing
	Exit()

	Blocked() bool
	Finished() bool
	Progress() bool

	Error() error

	SetCoroutineCreator(creator CoroutineCreator)
	SetDeadlockBudget(d time.Duration)
}

type key int

var coroutinesCtxKey key

type coState struct {
	blocking   chan bool    // coroutine is going to be blocked
	unblock    chan bool    // channel to unblock blocked coroutine
	blocked    atomic.Value // coroutine is currently blocked
	finished   atomic.Value // coroutine finished executing
	shouldExit atomic.Value // coroutine should exit
	progress   atomic.Value // did the coroutine make progress since last yield?

	err error

	deadlockBudget time.Duration

	creator CoroutineCreator
}

func NewCoroutine(ctx Context, fn func(ctx Context) error) Coroutine {
	s := newState()
	ctx = withCoState(ctx, s)

	go func() {
		defer s.finish() // Ensure we always mark the coroutine as finished
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok && errors.Is(err, ErrCoroutineAlreadyFinished) {
					// Ignore this specific error
					return
				}

				s.err = fmt.Errorf("panic: %v", r)
			}
		}()

		// yield before the first execution
		s.yield(false)

		s.err = fn(ctx)
	}()

	return s
}

func newState() *coState {
	c := &coState{
		blocking:       make(chan bool, 1),
		unblock:        make(chan bool),
		deadlockBudget: DefaultDeadlockBudget,
	}

	// Start out as blocked
	c.blocked.Store(true)

	return c
}

func (s *coState) finish() {
	s.finished.Store(true)
	s.blocking <- true
}

func (s *coState) SetCoroutineCreator(creator CoroutineCreator) {
	s.creator = creator
}

func (s *coState) SetDeadlockBudget(d time.Duration) {
	s.deadlockBudget = d
}

func (s *coState) Finished() bool {
	v, ok := s.finished.Load().(bool)
	return ok && v
}

func (s *coState) Blocked() bool {
	v, ok := s.blocked.Load().(bool)
	return ok && v
}

func (s *coState) MadeProgress() {
	s.progress.Store(true)
}

func (s *coState) ResetProgress() {
	s.progress.Store(false)
}

func (s *coState) Progress() bool {
	x := s.progress.Load()
	v, ok := x.(bool)
	return ok && v
}

func (s *coState) Yield() {
	s.yield(true)
}

func (s *coState) yield(markBlocking bool) {
	if markBlocking {
		if s.shouldExit.Load() != nil {
			panic(ErrCoroutineAlreadyFinished)
		}

		s.blocked.Store(true)

		s.blocking <- true
	}

	// Wait for the next Execute() call
	<-s.unblock

	// Once we're here, another Execute() call has been made. s.blocking is empty

	if s.shouldExit.Load() != nil {
		// Goexit runs all deferred functions, which includes calling finish() in the main
		// execution function. That marks the coroutine as finished and blocking.
		runtime.Goexit()
	}

	s.blocked.Store(false)
}

func (s *coState) Execute() error {
	s.ResetProgress()

	if s.Finished() {
		return nil
	}

	t := time.NewTimer(s.deadlockBudget)
	defer t.Stop()

	s.unblock <- true

	runtime.Gosched()

	// Run until blocked (which is also true when finished)
	select {
	case <-s.blocking:
		return nil
	case <-t.C:
		// The coroutine is still running. Leave it stuck; the caller has to
		// abandon the whole execution.
		return &DeadlockError{Budget: s.deadlockBudget}
	}
}

func (s *coState) Exit() {
	if s.Finished() {
		return
	}

	s.shouldExit.Store(true)

	// A coroutine that is not blocked is still running user code past its
	// deadlock budget. It never reaches the resume point, so resuming it
	// would block forever; abandon the goroutine instead.
	if !s.Blocked() {
		return
	}

	// The coroutine exits via Goexit as soon as it is resumed
	_ = s.Execute()
}

func (s *coState) Error() error {
	return s.err
}

func withCoState(ctx Context, s *coState) Context {
	return WithValue(ctx, coroutinesCtxKey, s)
}

func getCoState(ctx Context) *coState {
	s, ok := ctx.Value(coroutinesCtxKey).(*coState)
	if !ok {
		panic("could not find coroutine state")
	}

	return s
}
