package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Coroutine_ExecutesUntilBlocked(t *testing.T) {
	reached := false

	c := NewCoroutine(Background(), func(ctx Context) error {
		reached = true

		getCoState(ctx).Yield()

		return nil
	})

	require.NoError(t, c.Execute())
	require.True(t, reached)
	require.True(t, c.Blocked())
	require.False(t, c.Finished())

	c.Exit()
}

func Test_Coroutine_RunsToCompletion(t *testing.T) {
	c := NewCoroutine(Background(), func(ctx Context) error {
		return nil
	})

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())
	require.NoError(t, c.Error())
}

func Test_Coroutine_ContinuesAfterYield(t *testing.T) {
	steps := 0

	c := NewCoroutine(Background(), func(ctx Context) error {
		steps++
		getCoState(ctx).Yield()
		steps++

		return nil
	})

	require.NoError(t, c.Execute())
	require.Equal(t, 1, steps)

	require.NoError(t, c.Execute())
	require.Equal(t, 2, steps)
	require.True(t, c.Finished())
}

func Test_Coroutine_ReturnsError(t *testing.T) {
	expected := errors.New("expected")

	c := NewCoroutine(Background(), func(ctx Context) error {
		return expected
	})

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())
	require.Equal(t, expected, c.Error())
}

func Test_Coroutine_RecoversPanic(t *testing.T) {
	c := NewCoroutine(Background(), func(ctx Context) error {
		panic("help")
	})

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())
	require.Error(t, c.Error())
	require.Contains(t, c.Error().Error(), "panic")
}

func Test_Coroutine_Exit(t *testing.T) {
	deferCalled := false

	c := NewCoroutine(Background(), func(ctx Context) error {
		defer func() {
			deferCalled = true
		}()

		getCoState(ctx).Yield()

		t.FailNow() // must not resume past the yield

		return nil
	})

	require.NoError(t, c.Execute())
	require.True(t, c.Blocked())

	c.Exit()

	require.True(t, c.Finished())
	require.True(t, deferCalled)
}

func Test_Coroutine_DeadlockBudget(t *testing.T) {
	release := make(chan struct{})

	c := NewCoroutine(Background(), func(ctx Context) error {
		// Block without yielding
		<-release

		return nil
	})
	c.SetDeadlockBudget(10 * time.Millisecond)

	err := c.Execute()

	var de *DeadlockError
	require.ErrorAs(t, err, &de)
	require.Equal(t, 10*time.Millisecond, de.Budget)

	// Let the goroutine finish so it does not leak
	close(release)
}

func Test_Coroutine_ExitAfterDeadlockReturns(t *testing.T) {
	release := make(chan struct{})

	c := NewCoroutine(Background(), func(ctx Context) error {
		// Block without yielding
		<-release

		return nil
	})
	c.SetDeadlockBudget(10 * time.Millisecond)

	var de *DeadlockError
	require.ErrorAs(t, c.Execute(), &de)

	// The coroutine never reached a suspension point, so there is nothing to
	// resume. Exit must abandon it instead of waiting for it.
	done := make(chan struct{})
	go func() {
		c.Exit()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		require.FailNow(t, "Exit did not return for a non-yielding coroutine")
	}

	// Let the goroutine finish so it does not leak
	close(release)
}

func Test_Coroutine_BlockedDoesNotConsumeBudget(t *testing.T) {
	c := NewCoroutine(Background(), func(ctx Context) error {
		getCoState(ctx).Yield()

		return nil
	})
	c.SetDeadlockBudget(5 * time.Millisecond)

	require.NoError(t, c.Execute())

	// Stay blocked for longer than the budget before resuming
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())
}
