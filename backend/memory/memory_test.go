package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/durableio/rewind/backend"
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

func Test_MemoryBackend_CreateWorkflowInstance(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())

	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	// Duplicate executions are rejected
	err := b.CreateWorkflowInstance(ctx, instance, startEvent("wf"))
	require.ErrorIs(t, err, backend.ErrInstanceAlreadyExists)

	state, err := b.GetWorkflowInstanceState(ctx, instance)
	require.NoError(t, err)
	require.Equal(t, core.WorkflowInstanceStateActive, state)
}

func Test_MemoryBackend_GetWorkflowTask(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.Nil(t, task)

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	task, err = b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Equal(t, instance, task.WorkflowInstance)
	require.Len(t, task.NewEvents, 1)
	require.Equal(t, int64(0), task.LastSequenceID)

	// Instance is locked, no second task for it
	task2, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.Nil(t, task2)
}

func Test_MemoryBackend_CompleteWorkflowTask(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)

	executed := make([]*history.Event, 0, len(task.NewEvents))
	for i, e := range task.NewEvents {
		e.SequenceID = int64(i + 1)
		executed = append(executed, e)
	}

	require.NoError(t, b.CompleteWorkflowTask(
		ctx, task, core.WorkflowInstanceStateActive, executed, nil, nil, nil))

	h, err := b.GetWorkflowInstanceHistory(ctx, instance, nil)
	require.NoError(t, err)
	require.Len(t, h, 1)

	// Filtered by sequence id
	one := int64(1)
	h, err = b.GetWorkflowInstanceHistory(ctx, instance, &one)
	require.NoError(t, err)
	require.Empty(t, h)

	// No pending events, no new task
	task, err = b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.Nil(t, task)
}

func Test_MemoryBackend_SignalWorkflow(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	err := b.SignalWorkflow(ctx, "unknown", history.NewPendingEvent(
		time.Now(), history.EventType_SignalReceived, &history.SignalReceivedAttributes{Name: "s"}))
	require.ErrorIs(t, err, backend.ErrInstanceNotFound)

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	require.NoError(t, b.SignalWorkflow(ctx, instance.InstanceID, history.NewPendingEvent(
		time.Now(), history.EventType_SignalReceived, &history.SignalReceivedAttributes{Name: "s"})))

	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Len(t, task.NewEvents, 2)
}

func Test_MemoryBackend_TimerEventsNotVisibleUntilDue(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)

	fireAt := time.Now().Add(time.Hour)
	timerEvent := history.NewPendingEvent(
		time.Now(),
		history.EventType_TimerFired,
		&history.TimerFiredAttributes{At: fireAt},
		history.ScheduleEventID(1),
		history.VisibleAt(fireAt),
	)

	require.NoError(t, b.CompleteWorkflowTask(
		ctx, task, core.WorkflowInstanceStateActive, task.NewEvents, nil, []*history.Event{timerEvent}, nil))

	// Timer not due yet
	task, err = b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.Nil(t, task)
}

func Test_MemoryBackend_ActivityRoundtrip(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	instance := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, instance, startEvent("wf")))

	task, err := b.GetWorkflowTask(ctx)
	require.NoError(t, err)

	activityEvent := history.NewPendingEvent(
		time.Now(),
		history.EventType_ActivityScheduled,
		&history.ActivityScheduledAttributes{Name: "a"},
		history.ScheduleEventID(1),
	)

	require.NoError(t, b.CompleteWorkflowTask(
		ctx, task, core.WorkflowInstanceStateActive, task.NewEvents, []*history.Event{activityEvent}, nil, nil))

	at, err := b.GetActivityTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, at)
	require.Equal(t, activityEvent, at.Event)

	// Locked for other workers
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

	// Result is delivered as a new workflow task
	task, err = b.GetWorkflowTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Len(t, task.NewEvents, 1)
	require.Equal(t, history.EventType_ActivityCompleted, task.NewEvents[0].Type)
}

func Test_MemoryBackend_CancelCascadesToSubWorkflows(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	parent := core.NewWorkflowInstance(uuid.NewString(), uuid.NewString())
	require.NoError(t, b.CreateWorkflowInstance(ctx, parent, startEvent("parent")))

	sub := core.NewSubWorkflowInstance(uuid.NewString(), uuid.NewString(), parent, 1)
	require.NoError(t, b.CreateWorkflowInstance(ctx, sub, startEvent("sub")))

	require.NoError(t, b.CancelWorkflowInstance(ctx, parent, history.NewWorkflowCancellationEvent(time.Now())))

	foundCancellations := 0
	for _, instance := range []*core.WorkflowInstance{parent, sub} {
		task, err := b.GetWorkflowTask(ctx)
		require.NoError(t, err)
		require.NotNil(t, task, "expected task for %v", instance.InstanceID)

		for _, e := range task.NewEvents {
			if e.Type == history.EventType_WorkflowExecutionCanceled {
				foundCancellations++
			}
		}
	}

	require.Equal(t, 2, foundCancellations)
}
