package sync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func Test_ErrGroup_WaitsForAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	done := 0

	s.NewCoroutine(Background(), func(ctx Context) error {
		g, gctx := WithErrGroup(ctx)

		for i := 0; i < 3; i++ {
			g.Go(gctx, func(ctx Context) error {
				done++

				return nil
			})
		}

		return g.Wait(gctx)
	})

	require.NoError(t, s.Execute())
	require.Equal(t, 3, done)
	require.Equal(t, 0, s.RunningCoroutines())
}

func Test_ErrGroup_FirstErrorWinsAndCancels(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	expected := errors.New("expected")
	var siblingCanceled bool
	var err error

	s.NewCoroutine(Background(), func(ctx Context) error {
		g, gctx := WithErrGroup(ctx)

		g.Go(gctx, func(ctx Context) error {
			return expected
		})

		g.Go(gctx, func(ctx Context) error {
			_, ok := ctx.Done().Receive(ctx)
			siblingCanceled = !ok

			return errors.New("later")
		})

		err = g.Wait(gctx)

		return nil
	})

	require.NoError(t, s.Execute())
	require.Equal(t, expected, err)
	require.True(t, siblingCanceled)
}

func Test_AwaitCondition(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	flag := false
	resumed := false

	s.NewCoroutine(Background(), func(ctx Context) error {
		if err := AwaitCondition(ctx, func() bool { return flag }); err != nil {
			return err
		}

		resumed = true

		return nil
	})

	require.NoError(t, s.Execute())
	require.False(t, resumed)

	flag = true

	require.NoError(t, s.Execute())
	require.True(t, resumed)
}

func Test_AwaitCondition_CanceledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	root, cancel := WithCancel(Background())
	var err error

	s.NewCoroutine(root, func(ctx Context) error {
		err = AwaitCondition(ctx, func() bool { return false })

		return nil
	})

	require.NoError(t, s.Execute())

	cancel()

	require.NoError(t, s.Execute())
	require.Equal(t, Canceled, err)
}
