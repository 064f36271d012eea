package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func Test_Scheduler_RunsCoroutinesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()
	defer s.Exit()

	var order []int

	for i := 0; i < 3; i++ {
		i := i
		s.NewCoroutine(Background(), func(ctx Context) error {
			order = append(order, i)
			getCoState(ctx).Yield()
			order = append(order, i)

			return nil
		})
	}

	require.NoError(t, s.Execute())
	require.Equal(t, 0, s.RunningCoroutines())
	require.Equal(t, []int{0, 1, 2, 0, 1, 2}, order)
}

func Test_Scheduler_NewCoroutineRunsAfterExisting(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	var order []string

	s.NewCoroutine(Background(), func(ctx Context) error {
		order = append(order, "a")

		Go(ctx, func(ctx Context) {
			order = append(order, "spawned")
		})

		getCoState(ctx).Yield()
		order = append(order, "a2")

		return nil
	})

	s.NewCoroutine(Background(), func(ctx Context) error {
		order = append(order, "b")

		return nil
	})

	require.NoError(t, s.Execute())
	require.Equal(t, []string{"a", "b", "spawned", "a2"}, order)
}

func Test_Scheduler_ReturnsCoroutineError(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	expected := errors.New("expected")

	s.NewCoroutine(Background(), func(ctx Context) error {
		return expected
	})

	require.Equal(t, expected, s.Execute())
}

func Test_Scheduler_StopsWhenAllBlocked(t *testing.T) {
	s := NewScheduler()

	ch := NewChannel[int]()

	s.NewCoroutine(Background(), func(ctx Context) error {
		ch.Receive(ctx)

		return nil
	})

	require.NoError(t, s.Execute())
	require.Equal(t, 1, s.RunningCoroutines())

	s.Exit()
	require.Equal(t, 1, s.RunningCoroutines())
}

func Test_Scheduler_ExitAfterDeadlock(t *testing.T) {
	s := NewScheduler(WithDeadlockBudget(10 * time.Millisecond))

	release := make(chan struct{})

	s.NewCoroutine(Background(), func(ctx Context) error {
		// Block without yielding
		<-release

		return nil
	})

	var de *DeadlockError
	require.ErrorAs(t, s.Execute(), &de)

	// Exit abandons the non-yielding coroutine instead of waiting for it
	done := make(chan struct{})
	go func() {
		s.Exit()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		require.FailNow(t, "Exit did not return after a deadlocked pass")
	}

	close(release)
}

func Test_Scheduler_ResumesBlockedCoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	ch := NewChannel[int]()
	var received int

	s.NewCoroutine(Background(), func(ctx Context) error {
		v, _ := ch.Receive(ctx)
		received = v

		return nil
	})

	require.NoError(t, s.Execute())

	s.NewCoroutine(Background(), func(ctx Context) error {
		ch.Send(ctx, 42)

		return nil
	})

	require.NoError(t, s.Execute())
	require.Equal(t, 42, received)
	require.Equal(t, 0, s.RunningCoroutines())
}
