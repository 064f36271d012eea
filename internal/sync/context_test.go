package sync

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func Test_Context_WithValue(t *testing.T) {
	type key int
	var k key

	ctx := WithValue(Background(), k, "v")
	require.Equal(t, "v", ctx.Value(k))
	require.Nil(t, ctx.Value("other"))
}

func Test_Context_WithCancel(t *testing.T) {
	ctx, cancel := WithCancel(Background())
	require.NoError(t, ctx.Err())
	require.False(t, ctx.Done().(ChannelInternal[struct{}]).Closed())

	cancel()

	require.Equal(t, Canceled, ctx.Err())
	require.True(t, ctx.Done().(ChannelInternal[struct{}]).Closed())

	// Second cancel is a no-op
	cancel()
	require.Equal(t, Canceled, ctx.Err())
}

func Test_Context_CancelPropagatesToChildren(t *testing.T) {
	parent, cancel := WithCancel(Background())
	child, childCancel := WithCancel(parent)
	defer childCancel()

	cancel()

	require.Equal(t, Canceled, parent.Err())
	require.Equal(t, Canceled, child.Err())
}

func Test_Context_ChildOfCanceledParent(t *testing.T) {
	parent, cancel := WithCancel(Background())
	cancel()

	child, childCancel := WithCancel(parent)
	defer childCancel()

	require.Equal(t, Canceled, child.Err())
}

func Test_Context_ChildCancelDoesNotAffectParent(t *testing.T) {
	parent, cancel := WithCancel(Background())
	defer cancel()

	child, childCancel := WithCancel(parent)

	childCancel()

	require.NoError(t, parent.Err())
	require.Equal(t, Canceled, child.Err())
}

func Test_Context_DisconnectedIgnoresParentCancel(t *testing.T) {
	parent, cancel := WithCancel(Background())

	d := NewDisconnectedContext(parent)

	cancel()

	require.Equal(t, Canceled, parent.Err())
	require.NoError(t, d.Err())
	require.False(t, d.Done().(ChannelInternal[struct{}]).Closed())
}

func Test_Context_DisconnectedKeepsValues(t *testing.T) {
	type key int
	var k key

	ctx := WithValue(Background(), k, 42)
	d := NewDisconnectedContext(ctx)

	require.Equal(t, 42, d.Value(k))
}

func Test_Context_CancelUnblocksReceiver(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler()

	root, cancel := WithCancel(Background())

	canceled := false
	s.NewCoroutine(root, func(ctx Context) error {
		_, ok := ctx.Done().Receive(ctx)
		canceled = !ok

		return nil
	})

	require.NoError(t, s.Execute())
	require.Equal(t, 1, s.RunningCoroutines())

	cancel()

	require.NoError(t, s.Execute())
	require.True(t, canceled)
}
