package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/durableio/rewind/internal/sync"
)

func Test_Await_Condition(t *testing.T) {
	ctx, _ := newTestContext(t)

	ready := false

	c := sync.NewCoroutine(ctx, func(ctx Context) error {
		require.NoError(t, Await(ctx, func() bool { return ready }))

		return nil
	})

	require.NoError(t, c.Execute())
	require.False(t, c.Finished())

	ready = true

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())
}

func Test_Await_Canceled(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx, cancel := WithCancel(ctx)

	c := sync.NewCoroutine(ctx, func(ctx Context) error {
		err := Await(ctx, func() bool { return false })
		require.Equal(t, Canceled, err)

		return nil
	})

	require.NoError(t, c.Execute())
	require.False(t, c.Finished())

	cancel()

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())
}

func Test_AwaitWithTimeout_ConditionWins(t *testing.T) {
	ctx, state := newTestContext(t)

	ready := false

	c := sync.NewCoroutine(ctx, func(ctx Context) error {
		met, err := AwaitWithTimeout(ctx, time.Minute, func() bool { return ready })
		require.NoError(t, err)
		require.True(t, met)

		return nil
	})

	require.NoError(t, c.Execute())
	require.False(t, c.Finished())

	ready = true

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())

	// Timer was canceled when the condition won
	require.Len(t, state.Commands(), 0)
}

func Test_AwaitWithTimeout_TimerWins(t *testing.T) {
	ctx, state := newTestContext(t)

	c := sync.NewCoroutine(ctx, func(ctx Context) error {
		met, err := AwaitWithTimeout(ctx, time.Minute, func() bool { return false })
		require.NoError(t, err)
		require.False(t, met)

		return nil
	})

	require.NoError(t, c.Execute())
	require.False(t, c.Finished())

	// Fire the timeout timer
	cmd := state.CommandByScheduleEventID(1)
	cmd.Commit()
	cmd.Done()
	fs, ok := state.FutureByScheduleEventID(1)
	require.True(t, ok)
	require.NoError(t, fs(nil, nil))

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())
}
