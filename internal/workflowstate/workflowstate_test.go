package workflowstate

import (
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/durableio/rewind/backend/converter"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/core"
	"github.com/durableio/rewind/internal/command"
	"github.com/durableio/rewind/internal/contextvalue"
	"github.com/durableio/rewind/internal/sync"
)

func newTestState() *WfState {
	i := core.NewWorkflowInstance("instance", "execution")
	return NewWorkflowState(i, slog.Default(), clock.NewMock())
}

func Test_ScheduleEventIDsAreSequential(t *testing.T) {
	wf := newTestState()

	require.Equal(t, int64(1), wf.GetNextScheduleEventID())
	require.Equal(t, int64(2), wf.GetNextScheduleEventID())
	require.Equal(t, int64(3), wf.GetNextScheduleEventID())
}

func Test_Commands(t *testing.T) {
	wf := newTestState()

	c := command.NewScheduleActivityCommand(wf.GetNextScheduleEventID(), "a", nil)
	wf.AddCommand(c)

	require.Len(t, wf.Commands(), 1)
	require.Equal(t, c, wf.CommandByScheduleEventID(c.ID()))
	require.Nil(t, wf.CommandByScheduleEventID(42))

	wf.RemoveCommand(c)
	require.Empty(t, wf.Commands())

	wf.AddCommand(c)
	wf.ClearCommands()
	require.Empty(t, wf.Commands())
}

func Test_PendingFutures(t *testing.T) {
	wf := newTestState()

	f := sync.NewFuture[int]()
	wf.TrackFuture(1, AsDecodingSettable(converter.DefaultConverter, "test", f))

	df, ok := wf.FutureByScheduleEventID(1)
	require.True(t, ok)

	p, err := converter.DefaultConverter.To(42)
	require.NoError(t, err)
	require.NoError(t, df(p, nil))

	require.True(t, f.(sync.FutureInternal[int]).Ready())

	wf.RemoveFuture(1)
	_, ok = wf.FutureByScheduleEventID(1)
	require.False(t, ok)
}

func Test_SignalChannelBuffersPendingSignals(t *testing.T) {
	wf := newTestState()

	arg1, _ := converter.DefaultConverter.To("first")
	arg2, _ := converter.DefaultConverter.To("second")

	// Signals arrive before any channel exists
	ReceiveSignal(wf, "greeting", arg1)
	ReceiveSignal(wf, "greeting", arg2)

	ctx := contextvalue.WithConverter(sync.Background(), converter.DefaultConverter)

	c := GetSignalChannel[string](ctx, wf, "greeting")

	v, ok := c.ReceiveNonBlocking()
	require.True(t, ok)
	require.Equal(t, "first", v)

	v, ok = c.ReceiveNonBlocking()
	require.True(t, ok)
	require.Equal(t, "second", v)

	_, ok = c.ReceiveNonBlocking()
	require.False(t, ok)
}

func Test_SignalChannelReceivesLaterSignals(t *testing.T) {
	wf := newTestState()

	ctx := contextvalue.WithConverter(sync.Background(), converter.DefaultConverter)
	c := GetSignalChannel[int](ctx, wf, "count")

	// Same name returns the same channel
	require.Equal(t, c, GetSignalChannel[int](ctx, wf, "count"))

	arg, _ := converter.DefaultConverter.To(23)
	ReceiveSignal(wf, "count", arg)

	v, ok := c.ReceiveNonBlocking()
	require.True(t, ok)
	require.Equal(t, 23, v)
}

func Test_DeterministicRand(t *testing.T) {
	i := core.NewWorkflowInstance("instance", "execution")

	a := NewWorkflowState(i, slog.Default(), clock.NewMock())
	b := NewWorkflowState(i, slog.Default(), clock.NewMock())

	for n := 0; n < 10; n++ {
		require.Equal(t, a.Rand().Int63(), b.Rand().Int63())
	}

	// A different execution yields a different sequence
	other := NewWorkflowState(core.NewWorkflowInstance("instance", "other"), slog.Default(), clock.NewMock())
	require.NotEqual(t, a.Rand().Int63(), other.Rand().Int63())
}

func Test_WorkflowTime(t *testing.T) {
	wf := newTestState()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	wf.SetTime(ts)
	require.Equal(t, ts, wf.Time())
}

func Test_PayloadRoundtripForDuplicateJSONFields(t *testing.T) {
	// Ensure future payload decoding surfaces conversion errors
	wf := newTestState()

	f := sync.NewFuture[int]()
	wf.TrackFuture(1, AsDecodingSettable(converter.DefaultConverter, "test", f))

	df, _ := wf.FutureByScheduleEventID(1)
	require.Error(t, df(payload.Payload(`"not a number"`), nil))
}
