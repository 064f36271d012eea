package sqlitestore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/converter"
	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/core"
)

func startEvent(name string) *history.Event {
	return history.NewPendingEvent(
		time.Now(),
		history.EventType_WorkflowExecutionStarted,
		&history.ExecutionStartedAttributes{
			Name:   name,
			Inputs: []payload.Payload{},
		},
	)
}

func Test_SqliteBackend_CreateWorkflowInstance(t *testing.T) {
	b := NewInMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())

	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	err := b.CreateWorkflowInstance(ctx, instance, startEvent("wf"))
	require.ErrorIs(t, err, backend.ErrInstanceAlreadyExists)

	state, err := b.GetWorkflowInstanceState(ctx, instance)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateActive, state)

	_, err = b.GetWorkflowInstanceState(ctx, core.NewWorkflowInstance("unknown", "unknown"))
	require.ErrorIs(t, err, backend.ErrInstanceNotFound)
}

func Test_SqliteBackend_TaskRoundtrip(t *testing.T) {
	b := NewInMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Equal(t, instance.InstanceID, task.WorkflowInstance.InstanceID)
	require.Len(t, task.NewEvents, 1)
	require.Equal(t, history.EventType_WorkflowExecutionStarted, task.NewEvents[0].Type)

	// Locked for other workers until completed
	task2, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.Nil(t, task2)

	executed := task.NewEvents
	for i, e := range executed {
		e.SequenceID = int64(i + 1)
	}

	require.NoError(t, b.CompleteWorkflowTask(
		ctx, task, core.WorkflowInstanceStateActive, executed, nil, nil, nil))

	h, err := b.GetWorkflowInstanceHistory(ctx, instance, nil)
	require.NoError(t, err)
	require.Len(t, h, 1)
	require.Equal(t, history.EventType_WorkflowExecutionStarted, h[0].Type)
	require.Equal(t, int64(1), h[0].SequenceID)

	one := int64(1)
	h, err = b.GetWorkflowInstanceHistory(ctx, instance, &one)
	require.NoError(t, err)
	require.Empty(t, h)
}

func Test_SqliteBackend_SignalWorkflow(t *testing.T) {
	b := NewInMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	signal := history.NewPendingEvent(
		time.Now(), history.EventType_SignalReceived, &history.SignalReceivedAttributes{Name: "s"})

	require.ErrorIs(t, b.SignalWorkflow(ctx, "unknown", signal), backend.ErrInstanceNotFound)

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	require.NoError(t, b.SignalWorkflow(ctx, instance.InstanceID, signal))

	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Len(t, task.NewEvents, 2)
}

func Test_SqliteBackend_ActivityRoundtrip(t *testing.T) {
	b := NewInMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)

	input, err := converter.DefaultConverter.To(42)
	require.NoError(t, err)

	activityEvent := history.NewPendingEvent(
		time.Now(),
		history.EventType_ActivityScheduled,
		&history.ActivityScheduledAttributes{Name: "a", Inputs: []payload.Payload{input}},
		history.ScheduleEventID(1),
	)

	executed := task.NewEvents
	for i, e := range executed {
		e.SequenceID = int64(i + 1)
	}

	require.NoError(t, b.CompleteWorkflowTask(
		ctx, task, core.WorkflowInstanceStateActive, executed, []*history.Event{activityEvent}, nil, nil))

	at, err := b.GetActivityTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, at)
	require.Equal(t, activityEvent.ID, at.Event.ID)
	require.Equal(t, "a", at.Event.Attributes.(*history.ActivityScheduledAttributes).Name)

	at2, err := b.GetActivityTask(ctx)
	require.NoError(t, err)
	require.Nil(t, at2)

	result := history.NewPendingEvent(
		time.Now(),
		history.EventType_ActivityCompleted,
		&history.ActivityCompletedAttributes{},
		history.ScheduleEventID(1),
	)

	require.NoError(t, b.CompleteActivityTask(ctx, at, result))

	task, err = b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Len(t, task.NewEvents, 1)
	require.Equal(t, history.EventType_ActivityCompleted, task.NewEvents[0].Type)
}

func Test_SqliteBackend_TimerNotVisibleUntilDue(t *testing.T) {
	b := NewInMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)

	fireAt := time.Now().Add(time.Hour)
	timerEvent := history.NewPendingEvent(
		time.Now(),
		history.EventType_TimerFired,
		&history.TimerFiredAttributes{At: fireAt},
		history.ScheduleEventID(1),
		history.VisibleAt(fireAt),
	)

	executed := task.NewEvents
	for i, e := range executed {
		e.SequenceID = int64(i + 1)
	}

	require.NoError(t, b.CompleteWorkflowTask(
		ctx, task, core.WorkflowInstanceStateActive, executed, nil, []*history.Event{timerEvent}, nil))

	task, err = b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.Nil(t, task)
}
