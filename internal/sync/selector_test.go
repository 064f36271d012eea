package sync

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func Test_Select_FutureCase(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	f := NewFuture[int]()
	var got int

	s.NewCoroutine(Background(), func(ctx Context) error {
		Select(ctx,
			Await(f, func(ctx Context, f Future[int]) {
				v, err := f.Get(ctx)
				require.NoError(t, err)
				got = v
			}),
		)

		return nil
	})

	require.NoError(t, s.Execute())
	require.Equal(t, 1, s.RunningCoroutines())

	require.NoError(t, f.Set(23, nil))

	require.NoError(t, s.Execute())
	require.Equal(t, 23, got)
}

func Test_Select_OrderGivenWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	f1 := NewFuture[int]()
	f2 := NewFuture[int]()
	require.NoError(t, f1.Set(1, nil))
	require.NoError(t, f2.Set(2, nil))

	var got int

	s.NewCoroutine(Background(), func(ctx Context) error {
		Select(ctx,
			Await(f1, func(ctx Context, f Future[int]) {
				got, _ = f.Get(ctx)
			}),
			Await(f2, func(ctx Context, f Future[int]) {
				got, _ = f.Get(ctx)
			}),
		)

		return nil
	})

	require.NoError(t, s.Execute())
	require.Equal(t, 1, got)
}

func Test_Select_ChannelReceive(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	ch := NewBufferedChannel[string](1)
	require.True(t, ch.SendNonblocking("hi"))

	var got string

	s.NewCoroutine(Background(), func(ctx Context) error {
		Select(ctx,
			Receive(ch, func(ctx Context, v string, ok bool) {
				require.True(t, ok)
				got = v
			}),
		)

		return nil
	})

	require.NoError(t, s.Execute())
	require.Equal(t, "hi", got)
}

func Test_Select_Default(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	f := NewFuture[int]()
	defaulted := false

	s.NewCoroutine(Background(), func(ctx Context) error {
		Select(ctx,
			Await(f, func(ctx Context, f Future[int]) {
				t.Fail()
			}),
			Default(func(ctx Context) {
				defaulted = true
			}),
		)

		return nil
	})

	require.NoError(t, s.Execute())
	require.True(t, defaulted)
}
