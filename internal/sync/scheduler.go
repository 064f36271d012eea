package sync

import "time"

// Scheduler runs coroutines in strict FIFO order. Coroutines created while a
// pass is running are appended to the tail of the list and therefore execute
// after all previously created coroutines; this left-to-right order is the
// determinism guarantee everything else relies on.
type Scheduler struct {
	coroutines []Coroutine

	deadlockBudget time.Duration
}

type SchedulerOption func(*Scheduler)

// WithDeadlockBudget sets the wall-clock budget a single coroutine may run
// without yielding before the pass is aborted.
func WithDeadlockBudget(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.deadlockBudget = d
	}
}

func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		coroutines:     make([]Coroutine, 0),
		deadlockBudget: DefaultDeadlockBudget,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewCoroutine starts a new coroutine and tracks it in this scheduler
func (s *Scheduler) NewCoroutine(ctx Context, fn func(Context) error) {
	c := NewCoroutine(ctx, fn)
	s.coroutines = append(s.coroutines, c)
	c.SetCoroutineCreator(s)
	c.SetDeadlockBudget(s.deadlockBudget)
}

// Execute executes all coroutines until they are all blocked. This is one
// pass; when it returns with a nil error the scheduler is quiescent.
func (s *Scheduler) Execute() error {
	allBlocked := false
	for !allBlocked {
		allBlocked = true
		for i := 0; i < len(s.coroutines); i++ {
			c := s.coroutines[i]

			if err := c.Execute(); err != nil {
				return err
			}

			if c.Finished() {
				// Coroutine finished, this counts as progress
				allBlocked = false

				// remove from list
				s.coroutines[i] = nil
				s.coroutines = append(s.coroutines[:i], s.coroutines[i+1:]...)
				i--

				if err := c.Error(); err != nil {
					// Coroutine encountered an error, abort execution
					return err
				}
			} else {
				// Determine if coroutine made any progress or if it stayed blocked
				allBlocked = allBlocked && !c.Progress()
			}
		}
	}

	return nil
}

func (s *Scheduler) RunningCoroutines() int {
	return len(s.coroutines)
}

func (s *Scheduler) Exit() {
	for _, c := range s.coroutines {
		c.Exit()
	}
}
