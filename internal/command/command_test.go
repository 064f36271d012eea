package command

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/core"
)

func assertExecuteNoEvent(t *testing.T, c Command, expectedState CommandState) {
	t.Helper()

	r := c.Execute(clock.New())

	require.Nil(t, r)
	require.Equal(t, expectedState, c.State())
}

func assertExecuteWithEvent(t *testing.T, c Command, expectedState CommandState, expectedEventType history.EventType) *CommandResult {
	t.Helper()

	r := c.Execute(clock.New())

	require.NotNil(t, r)
	require.Equal(t, expectedState, c.State())
	require.Len(t, r.Events, 1)
	require.Equal(t, expectedEventType, r.Events[0].Type)

	return r
}

func Test_ScheduleActivityCommand(t *testing.T) {
	c := NewScheduleActivityCommand(1, "activity", []payload.Payload{})
	require.Equal(t, CommandState_Pending, c.State())
	require.Equal(t, int64(1), c.ID())
	require.Equal(t, "ScheduleActivity", c.Type())

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_ActivityScheduled)
	require.Len(t, r.ActivityEvents, 1)
	require.Equal(t, int64(1), r.Events[0].ScheduleEventID)

	// Committed commands produce no further events
	assertExecuteNoEvent(t, c, CommandState_Committed)

	c.Done()
	require.Equal(t, CommandState_Done, c.State())
}

func Test_ScheduleTimerCommand(t *testing.T) {
	at := time.Now().Add(time.Minute)

	c := NewScheduleTimerCommand(2, at, "timer")

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_TimerScheduled)
	require.Len(t, r.TimerEvents, 1)
	require.Equal(t, history.EventType_TimerFired, r.TimerEvents[0].Type)
	require.Equal(t, at, *r.TimerEvents[0].VisibleAt)
}

func Test_ScheduleTimerCommand_CancelPending(t *testing.T) {
	c := NewScheduleTimerCommand(2, time.Now().Add(time.Minute), "timer")

	c.Cancel()
	require.Equal(t, CommandState_Canceled, c.State())

	assertExecuteNoEvent(t, c, CommandState_Canceled)
}

func Test_ScheduleTimerCommand_CancelCommitted(t *testing.T) {
	c := NewScheduleTimerCommand(2, time.Now().Add(time.Minute), "timer")

	assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_TimerScheduled)

	c.Cancel()
	require.Equal(t, CommandState_CancelPending, c.State())

	assertExecuteWithEvent(t, c, CommandState_Canceled, history.EventType_TimerCanceled)
}

func Test_CancelTimerCommand(t *testing.T) {
	c := NewCancelTimerCommand(5, 2)

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_TimerCanceled)
	require.Equal(t, int64(2), r.Events[0].ScheduleEventID)
}

func Test_CompleteWorkflowCommand(t *testing.T) {
	instance := core.NewWorkflowInstance("instance", "execution")

	c := NewCompleteWorkflowCommand(0, instance, payload.Payload("42"), nil)

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_WorkflowExecutionFinished)
	require.Equal(t, core.WorkflowInstanceStateFinished, r.State)
	require.Empty(t, r.WorkflowEvents)
}

func Test_CompleteWorkflowCommand_SubWorkflow(t *testing.T) {
	parent := core.NewWorkflowInstance("parent", "execution")
	instance := core.NewSubWorkflowInstance("sub", "execution", parent, 42)

	c := NewCompleteWorkflowCommand(0, instance, payload.Payload("42"), nil)

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_WorkflowExecutionFinished)
	require.Len(t, r.WorkflowEvents, 1)
	require.Equal(t, parent, r.WorkflowEvents[0].WorkflowInstance)
	require.Equal(t, history.EventType_SubWorkflowCompleted, r.WorkflowEvents[0].HistoryEvent.Type)
	require.Equal(t, int64(42), r.WorkflowEvents[0].HistoryEvent.ScheduleEventID)
}

func Test_ContinueAsNewCommand(t *testing.T) {
	instance := core.NewWorkflowInstance("instance", "execution")

	c := NewContinueAsNewCommand(0, instance, nil, "workflow", nil, []payload.Payload{payload.Payload("1")})

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_WorkflowExecutionContinuedAsNew)
	require.Equal(t, core.WorkflowInstanceStateContinuedAsNew, r.State)
	require.Len(t, r.WorkflowEvents, 1)

	started := r.WorkflowEvents[0]
	require.Equal(t, history.EventType_WorkflowExecutionStarted, started.HistoryEvent.Type)
	require.Equal(t, "instance", started.WorkflowInstance.InstanceID)
	require.NotEqual(t, "execution", started.WorkflowInstance.ExecutionID)
	require.Equal(t, c.ContinuedInstance, started.WorkflowInstance)
}

func Test_ScheduleSubWorkflowCommand(t *testing.T) {
	parent := core.NewWorkflowInstance("parent", "execution")

	c := NewScheduleSubWorkflowCommand(7, parent, "sub", "workflow", nil, nil)

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_SubWorkflowScheduled)
	require.Len(t, r.WorkflowEvents, 1)
	require.Equal(t, history.EventType_WorkflowExecutionStarted, r.WorkflowEvents[0].HistoryEvent.Type)
	require.Equal(t, "sub", r.WorkflowEvents[0].WorkflowInstance.InstanceID)
	require.Equal(t, parent, r.WorkflowEvents[0].WorkflowInstance.Parent)
	require.Equal(t, int64(7), r.WorkflowEvents[0].WorkflowInstance.ParentEventID)
}

func Test_ScheduleSubWorkflowCommand_Cancel(t *testing.T) {
	parent := core.NewWorkflowInstance("parent", "execution")

	c := NewScheduleSubWorkflowCommand(7, parent, "sub", "workflow", nil, nil)

	assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_SubWorkflowScheduled)

	c.Cancel()
	require.Equal(t, CommandState_CancelPending, c.State())

	r := assertExecuteWithEvent(t, c, CommandState_Canceled, history.EventType_SubWorkflowCancellationRequested)
	require.Len(t, r.WorkflowEvents, 1)
	require.Equal(t, history.EventType_WorkflowExecutionCanceled, r.WorkflowEvents[0].HistoryEvent.Type)
}

func Test_SideEffectCommand(t *testing.T) {
	c := NewSideEffectCommand(3, payload.Payload("result"))

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_SideEffectResult)
	require.Equal(t, int64(3), r.Events[0].ScheduleEventID)
}

func Test_SignalWorkflowCommand(t *testing.T) {
	c := NewSignalWorkflowCommand(4, "other-instance", "signal", payload.Payload("arg"))

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_SignalWorkflow)
	require.Len(t, r.WorkflowEvents, 1)
	require.Equal(t, "other-instance", r.WorkflowEvents[0].WorkflowInstance.InstanceID)
	require.Equal(t, history.EventType_SignalReceived, r.WorkflowEvents[0].HistoryEvent.Type)
}

func Test_RejectUpdateCommand(t *testing.T) {
	c := NewRejectUpdateCommand(8, "update-1", nil)

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_WorkflowUpdateRejected)

	attr := r.Events[0].Attributes.(*history.WorkflowUpdateRejectedAttributes)
	require.Equal(t, "update-1", attr.UpdateID)
}

func Test_CompleteUpdateCommand(t *testing.T) {
	c := NewCompleteUpdateCommand(9, "update-1", payload.Payload("done"), nil)

	r := assertExecuteWithEvent(t, c, CommandState_Committed, history.EventType_WorkflowUpdateCompleted)

	attr := r.Events[0].Attributes.(*history.WorkflowUpdateCompletedAttributes)
	require.Equal(t, "update-1", attr.UpdateID)
	require.Equal(t, payload.Payload("done"), attr.Result)
}
