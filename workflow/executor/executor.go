package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/converter"
	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/core"
	"github.com/durableio/rewind/internal/args"
	"github.com/durableio/rewind/internal/command"
	"github.com/durableio/rewind/internal/continueasnew"
	"github.com/durableio/rewind/internal/contextvalue"
	"github.com/durableio/rewind/internal/log"
	"github.com/durableio/rewind/internal/sync"
	"github.com/durableio/rewind/internal/tracing"
	"github.com/durableio/rewind/internal/workflowerrors"
	"github.com/durableio/rewind/internal/workflowstate"
	"github.com/durableio/rewind/registry"
)

type ExecutionResult struct {
	// New state of the workflow instance
	State core.WorkflowInstanceState

	// Events executed during the task execution
	Executed []*history.Event

	// Activities that were scheduled
	ActivityEvents []*history.Event

	// Timers that were scheduled
	TimerEvents []*history.Event

	// Events for other workflow instances
	WorkflowEvents []*history.WorkflowEvent
}

type WorkflowHistoryProvider interface {
	GetWorkflowInstanceHistory(ctx context.Context, instance *core.WorkflowInstance, lastSequenceID *int64) ([]*history.Event, error)
}

type WorkflowExecutor interface {
	ExecuteTask(ctx context.Context, t *backend.WorkflowTask) (*ExecutionResult, error)

	// ExecuteQuery runs a query handler against the current workflow state.
	// Must only be called between task executions, when the workflow is
	// quiescent.
	ExecuteQuery(ctx context.Context, name string, input payload.Payload) (payload.Payload, error)

	Close()
}

type Options struct {
	// DeadlockBudget bounds how long workflow code may run without reaching a
	// suspension point before the task is failed.
	DeadlockBudget time.Duration

	// MaxHistorySize fails the workflow once its history grows beyond this
	// number of events.
	MaxHistorySize int64
}

var DefaultOptions = &Options{
	DeadlockBudget: sync.DefaultDeadlockBudget,
	MaxHistorySize: 10_000,
}

type executor struct {
	registry          *registry.Registry
	historyProvider   WorkflowHistoryProvider
	workflow          *workflow
	workflowName      string
	workflowState     *workflowstate.WfState
	workflowCtx       sync.Context
	workflowCtxCancel sync.CancelFunc
	handlersCtx       sync.Context
	handlersCtxCancel sync.CancelFunc
	cv                converter.Converter
	clock             clock.Clock
	logger            *slog.Logger
	tracer            trace.Tracer
	options           *Options

	lastSequenceID      int64
	lastHandlersVersion int64
}

func NewExecutor(
	logger *slog.Logger,
	tracer trace.Tracer,
	r *registry.Registry,
	cv converter.Converter,
	historyProvider WorkflowHistoryProvider,
	instance *core.WorkflowInstance,
	md *metadata.WorkflowMetadata,
	clock clock.Clock,
	options *Options,
) (WorkflowExecutor, error) {
	if options == nil {
		options = DefaultOptions
	}

	s := workflowstate.NewWorkflowState(instance, logger, clock)

	wfCtx := sync.Background()
	wfCtx = contextvalue.WithConverter(wfCtx, cv)
	wfCtx = contextvalue.WithWorkflowMetadata(wfCtx, md)
	wfCtx = workflowstate.WithWorkflowState(wfCtx, s)

	wfCtx, cancel := sync.WithCancel(wfCtx)

	// Signal and update handler coroutines run as a group under their own
	// context derived from the workflow context, so instance cancellation
	// reaches all of them
	handlersCtx, handlersCancel := sync.WithCancel(wfCtx)

	return &executor{
		registry:          r,
		historyProvider:   historyProvider,
		workflowState:     s,
		workflowCtx:       wfCtx,
		workflowCtxCancel: cancel,
		handlersCtx:       handlersCtx,
		handlersCtxCancel: handlersCancel,
		cv:                cv,
		clock:             clock,
		logger:            logger,
		tracer:            tracer,
		options:           options,
	}, nil
}

func (e *executor) ExecuteTask(ctx context.Context, t *backend.WorkflowTask) (*ExecutionResult, error) {
	logger := e.logger.With(
		log.TaskIDKey, t.ID,
	)

	logger.Debug("Executing workflow task", slog.Int64(log.TaskLastSequenceIDKey, t.LastSequenceID))

	ctx, span := e.tracer.Start(ctx, "WorkflowTaskExecution", trace.WithAttributes(
		attribute.String(tracing.WorkflowTaskID, t.ID),
		attribute.String(tracing.WorkflowInstanceID, t.WorkflowInstance.InstanceID),
	))
	defer span.End()

	if t.WorkflowInstanceState == core.WorkflowInstanceStateFinished {
		// This could happen if signals are delivered after the workflow is finished
		logger.Error("Received workflow task for finished workflow instance, discarding events")

		for _, event := range t.NewEvents {
			logger.Debug("Discarded event",
				log.EventIDKey, event.ID,
				log.EventTypeKey, event.Type.String(),
				log.ScheduleEventIDKey, event.ScheduleEventID)
		}

		return &ExecutionResult{
			State: core.WorkflowInstanceStateFinished,
		}, nil
	}

	skipNewEvents, err := e.catchupOnHistory(ctx, t, logger)
	if err != nil {
		return nil, err
	}

	// Always add a WorkflowTaskStarted event before executing new events
	toExecute := []*history.Event{e.createNewEvent(history.EventType_WorkflowTaskStarted, &history.WorkflowTaskStartedAttributes{})}
	executedEvents := toExecute

	toExecute = append(toExecute, t.NewEvents...)

	// Execute new events received from the backend
	if !skipNewEvents {
		var err error
		executedEvents, err = e.executeNewEvents(toExecute)
		if err != nil {
			logger.Error("Error while executing new events", "error", err)

			// Transition workflow to error state
			e.workflowCompleted(nil, err)
		}
	}

	// Enforce max history size limit. Skip when this task already produced a
	// completion, otherwise two finished events would end up in the history
	if e.lastSequenceID+int64(len(executedEvents)) >= e.options.MaxHistorySize && !e.hasCompletionCommand() {
		e.workflowCompleted(nil, fmt.Errorf("workflow history size exceeded %d events", e.options.MaxHistorySize))
	}

	// Process any commands added while executing new events
	state := core.WorkflowInstanceStateActive
	newCommandEvents := make([]*history.Event, 0)
	activityEvents := make([]*history.Event, 0)
	timerEvents := make([]*history.Event, 0)
	workflowEvents := make([]*history.WorkflowEvent, 0)

	for _, c := range e.workflowState.Commands() {
		if c.State() == command.CommandState_Done {
			continue
		}

		r := c.Execute(e.clock)
		if r == nil {
			continue
		}

		if r.State > state {
			state = r.State
		}
		newCommandEvents = append(newCommandEvents, r.Events...)
		activityEvents = append(activityEvents, r.ActivityEvents...)
		timerEvents = append(timerEvents, r.TimerEvents...)
		workflowEvents = append(workflowEvents, r.WorkflowEvents...)
	}

	// Events from commands don't have to be executed again, add them to the
	// executed events
	executedEvents = append(executedEvents, newCommandEvents...)

	// Set SequenceIDs for all executed events
	for i := range executedEvents {
		executedEvents[i].SequenceID = e.nextSequenceID()
	}

	logger.Debug("Finished workflow task",
		log.ExecutedEventsKey, len(executedEvents),
		log.TaskLastSequenceIDKey, e.lastSequenceID,
		log.WorkflowInstanceStateKey, state,
	)

	return &ExecutionResult{
		State:          state,
		Executed:       executedEvents,
		ActivityEvents: activityEvents,
		TimerEvents:    timerEvents,
		WorkflowEvents: workflowEvents,
	}, nil
}

func (e *executor) ExecuteQuery(ctx context.Context, name string, input payload.Payload) (payload.Payload, error) {
	if e.workflow == nil {
		return nil, errors.New("workflow execution has not started")
	}

	h, ok := e.workflowState.Handlers().Handler(workflowstate.HandlerKind_Query, name)
	if !ok {
		return nil, fmt.Errorf("query handler %q not registered", name)
	}

	return e.invokeInline(h.Fn, input)
}

func (e *executor) catchupOnHistory(ctx context.Context, t *backend.WorkflowTask, logger *slog.Logger) (bool, error) {
	if t.LastSequenceID < e.lastSequenceID {
		return false, fmt.Errorf("task has older history than current state, cannot execute")
	}

	if t.LastSequenceID > e.lastSequenceID {
		logger.Debug("Task has newer history than current state, fetching and replaying history",
			log.TaskSequenceIDKey, t.LastSequenceID,
			log.LocalSequenceIDKey, e.lastSequenceID)

		h, err := e.historyProvider.GetWorkflowInstanceHistory(ctx, t.WorkflowInstance, &e.lastSequenceID)
		if err != nil {
			return false, fmt.Errorf("getting workflow history: %w", err)
		}

		if err := e.replayHistory(h); err != nil {
			logger.Error("Error while replaying history", "error", err)

			// Fail the workflow. Skip executing new events, but still go
			// through the commands
			e.workflowCompleted(nil, err)

			// Ensure new events don't get duplicate sequence ids
			e.lastSequenceID = t.LastSequenceID

			return true, nil
		}

		if t.LastSequenceID != e.lastSequenceID {
			logger.Error("After replaying history, task still has newer history than current state",
				log.TaskSequenceIDKey, t.LastSequenceID,
				log.LocalSequenceIDKey, e.lastSequenceID)

			return false, errors.New("even after fetching and replaying history, executor state does not match task")
		}
	}

	return false, nil
}

func (e *executor) replayHistory(h []*history.Event) error {
	e.workflowState.SetReplaying(true)
	for _, event := range h {
		if event.SequenceID < e.lastSequenceID {
			return errors.New("history has older events than current state")
		}

		if err := e.executeEvent(event); err != nil {
			return err
		}

		e.lastSequenceID = event.SequenceID
	}

	return nil
}

func (e *executor) executeNewEvents(newEvents []*history.Event) ([]*history.Event, error) {
	e.workflowState.SetReplaying(false)

	for i, event := range newEvents {
		if err := e.executeEvent(event); err != nil {
			return newEvents[:i], err
		}
	}

	if e.workflow.Completed() {
		if e.workflowState.HasPendingFutures() {
			return newEvents, fmt.Errorf(
				"workflow completed, but there are still pending futures: %v", e.workflowState.PendingFutureIDs())
		}

		if canErr, ok := e.workflow.Error().(*continueasnew.Error); ok {
			e.workflowRestarted(e.workflow.Result(), canErr)
		} else {
			e.workflowCompleted(e.workflow.Result(), e.workflow.Error())
		}
	}

	return newEvents, nil
}

func (e *executor) Close() {
	if e.workflow != nil {
		e.logger.Debug("Stopping workflow executor")

		// Cancel handler coroutines first, then end the workflow if running
		// to prevent leaking goroutines
		e.handlersCtxCancel()
		e.workflow.Close()
	}
}

func (e *executor) executeEvent(event *history.Event) error {
	e.logger.Debug("Executing event",
		log.EventIDKey, event.ID,
		log.SeqIDKey, event.SequenceID,
		log.EventTypeKey, event.Type,
		log.ScheduleEventIDKey, event.ScheduleEventID,
		log.IsReplayingKey, e.workflowState.Replaying(),
	)

	var err error

	switch event.Type {
	case history.EventType_WorkflowExecutionStarted:
		err = e.handleWorkflowExecutionStarted(event, event.Attributes.(*history.ExecutionStartedAttributes))

	case history.EventType_WorkflowExecutionFinished:
	// Ignore

	case history.EventType_WorkflowExecutionContinuedAsNew:
	// Ignore

	case history.EventType_WorkflowExecutionCanceled:
		err = e.handleWorkflowCanceled()

	case history.EventType_WorkflowTaskStarted:
		err = e.handleWorkflowTaskStarted(event, event.Attributes.(*history.WorkflowTaskStartedAttributes))

	case history.EventType_ActivityScheduled:
		err = e.handleActivityScheduled(event, event.Attributes.(*history.ActivityScheduledAttributes))

	case history.EventType_ActivityFailed:
		err = e.handleActivityFailed(event, event.Attributes.(*history.ActivityFailedAttributes))

	case history.EventType_ActivityCompleted:
		err = e.handleActivityCompleted(event, event.Attributes.(*history.ActivityCompletedAttributes))

	case history.EventType_TimerScheduled:
		err = e.handleTimerScheduled(event, event.Attributes.(*history.TimerScheduledAttributes))

	case history.EventType_TimerFired:
		err = e.handleTimerFired(event, event.Attributes.(*history.TimerFiredAttributes))

	case history.EventType_TimerCanceled:
		err = e.handleTimerCanceled(event, event.Attributes.(*history.TimerCanceledAttributes))

	case history.EventType_SignalReceived:
		err = e.handleSignalReceived(event, event.Attributes.(*history.SignalReceivedAttributes))

	case history.EventType_SignalWorkflow:
		err = e.handleSignalWorkflow(event, event.Attributes.(*history.SignalWorkflowAttributes))

	case history.EventType_SideEffectResult:
		err = e.handleSideEffectResult(event, event.Attributes.(*history.SideEffectResultAttributes))

	case history.EventType_SubWorkflowScheduled:
		err = e.handleSubWorkflowScheduled(event, event.Attributes.(*history.SubWorkflowScheduledAttributes))
	case history.EventType_SubWorkflowCancellationRequested:
		err = e.handleSubWorkflowCancellationRequest(event, event.Attributes.(*history.SubWorkflowCancellationRequestedAttributes))
	case history.EventType_SubWorkflowFailed:
		err = e.handleSubWorkflowFailed(event, event.Attributes.(*history.SubWorkflowFailedAttributes))
	case history.EventType_SubWorkflowCompleted:
		err = e.handleSubWorkflowCompleted(event, event.Attributes.(*history.SubWorkflowCompletedAttributes))

	case history.EventType_WorkflowUpdateRequested:
		err = e.handleWorkflowUpdateRequested(event, event.Attributes.(*history.WorkflowUpdateRequestedAttributes))
	case history.EventType_WorkflowUpdateRejected:
		err = e.handleWorkflowUpdateRejected(event, event.Attributes.(*history.WorkflowUpdateRejectedAttributes))
	case history.EventType_WorkflowUpdateCompleted:
		err = e.handleWorkflowUpdateCompleted(event, event.Attributes.(*history.WorkflowUpdateCompletedAttributes))

	default:
		return fmt.Errorf("unknown event type: %v", event.Type)
	}

	if err != nil {
		return err
	}

	// A handler registered while executing this event may serve signals that
	// were buffered earlier
	if e.workflow != nil && e.workflowState.Handlers().Version() != e.lastHandlersVersion {
		e.lastHandlersVersion = e.workflowState.Handlers().Version()
		return e.dispatchBufferedSignals()
	}

	return nil
}

func (e *executor) handleWorkflowExecutionStarted(event *history.Event, a *history.ExecutionStartedAttributes) error {
	def, err := e.registry.GetWorkflow(a.Name)
	if err != nil {
		return fmt.Errorf("workflow %q not found", a.Name)
	}

	var fn reflect.Value
	if def.IsStruct() {
		// Fresh struct value per instance; handler methods are bound to it
		recv := reflect.New(def.Type.Elem())
		fn = recv.MethodByName(registry.RunMethodName)

		for _, hm := range def.Handlers {
			m := recv.MethodByName(hm.Method)

			switch hm.Kind {
			case workflowstate.HandlerKind_Update:
				var validator interface{}
				if hm.ValidatorMethod != "" {
					validator = recv.MethodByName(hm.ValidatorMethod).Interface()
				}

				if err := e.workflowState.Handlers().AddUpdate(hm.Name, m.Interface(), validator); err != nil {
					return fmt.Errorf("registering update handler %q: %w", hm.Name, err)
				}

			default:
				if err := e.workflowState.Handlers().Add(hm.Kind, hm.Name, m.Interface()); err != nil {
					return fmt.Errorf("registering %s handler %q: %w", hm.Kind, hm.Name, err)
				}
			}
		}
	} else {
		fn = reflect.ValueOf(def.Fn)
	}

	e.workflowName = a.Name
	e.lastHandlersVersion = e.workflowState.Handlers().Version()

	e.workflow = newWorkflow(fn, e.options.DeadlockBudget)
	return e.workflow.Execute(e.workflowCtx, a.Inputs)
}

func (e *executor) handleWorkflowCanceled() error {
	e.workflowCtxCancel()

	return e.workflow.Continue()
}

func (e *executor) handleWorkflowTaskStarted(event *history.Event, a *history.WorkflowTaskStartedAttributes) error {
	e.workflowState.SetTime(event.Timestamp)

	return nil
}

func (e *executor) handleActivityScheduled(event *history.Event, a *history.ActivityScheduledAttributes) error {
	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", fmt.Sprintf("activity %q scheduled", a.Name))
	}

	sac, ok := c.(*command.ScheduleActivityCommand)
	if !ok {
		return workflowerrors.NewDeterminismError(c.Type(), fmt.Sprintf("activity %q scheduled", a.Name))
	}

	// Ensure the same activity was scheduled again
	if a.Name != sac.Name {
		return workflowerrors.NewDeterminismError(fmt.Sprintf("activity %q", sac.Name), fmt.Sprintf("activity %q", a.Name))
	}

	sac.Commit()

	return nil
}

func (e *executor) handleActivityCompleted(event *history.Event, a *history.ActivityCompletedAttributes) error {
	f, ok := e.workflowState.FutureByScheduleEventID(event.ScheduleEventID)
	if !ok {
		return fmt.Errorf("no pending future for activity completed event")
	}

	if err := f(a.Result, nil); err != nil {
		return fmt.Errorf("setting activity completed result: %w", err)
	}

	e.workflowState.RemoveFuture(event.ScheduleEventID)

	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "activity completed")
	}

	sac, ok := c.(*command.ScheduleActivityCommand)
	if !ok {
		return workflowerrors.NewDeterminismError(c.Type(), "activity completed")
	}

	sac.Done()

	return e.workflow.Continue()
}

func (e *executor) handleActivityFailed(event *history.Event, a *history.ActivityFailedAttributes) error {
	f, ok := e.workflowState.FutureByScheduleEventID(event.ScheduleEventID)
	if !ok {
		return errors.New("no pending future for activity failed event")
	}

	if err := f(nil, workflowerrors.ToError(a.Error)); err != nil {
		return fmt.Errorf("setting activity failed result: %w", err)
	}

	e.workflowState.RemoveFuture(event.ScheduleEventID)

	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "activity failed")
	}

	sac, ok := c.(*command.ScheduleActivityCommand)
	if !ok {
		return workflowerrors.NewDeterminismError(c.Type(), "activity failed")
	}

	sac.Done()

	return e.workflow.Continue()
}

func (e *executor) handleTimerScheduled(event *history.Event, a *history.TimerScheduledAttributes) error {
	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "timer scheduled")
	}

	if _, ok := c.(*command.ScheduleTimerCommand); !ok {
		return workflowerrors.NewDeterminismError(c.Type(), "timer scheduled")
	}

	c.Commit()

	return nil
}

func (e *executor) handleTimerFired(event *history.Event, a *history.TimerFiredAttributes) error {
	f, ok := e.workflowState.FutureByScheduleEventID(event.ScheduleEventID)
	if !ok {
		// Timer already canceled, ignore
		return nil
	}

	if err := f(nil, nil); err != nil {
		return fmt.Errorf("setting timer fired result: %w", err)
	}

	e.workflowState.RemoveFuture(event.ScheduleEventID)

	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "timer fired")
	}

	if _, ok := c.(*command.ScheduleTimerCommand); !ok {
		return workflowerrors.NewDeterminismError(c.Type(), "timer fired")
	}

	c.Done()

	return e.workflow.Continue()
}

func (e *executor) handleTimerCanceled(event *history.Event, a *history.TimerCanceledAttributes) error {
	// Retire the cancel command this code path regenerated, if any; its event
	// is the one being handled right now
	for _, c := range e.workflowState.Commands() {
		if ctc, ok := c.(*command.CancelTimerCommand); ok &&
			ctc.TimerScheduleEventID == event.ScheduleEventID &&
			ctc.State() == command.CommandState_Pending {
			ctc.Done()
			break
		}
	}

	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "timer canceled")
	}

	stc, ok := c.(*command.ScheduleTimerCommand)
	if !ok {
		return workflowerrors.NewDeterminismError(c.Type(), "timer canceled")
	}

	stc.HandleCancel()

	// Cancel the pending future
	f, ok := e.workflowState.FutureByScheduleEventID(event.ScheduleEventID)
	if !ok {
		// Timer already canceled, ignore
		return nil
	}

	if err := f(nil, sync.Canceled); err != nil {
		return fmt.Errorf("setting timer canceled result: %w", err)
	}

	e.workflowState.RemoveFuture(event.ScheduleEventID)

	return e.workflow.Continue()
}

func (e *executor) handleSubWorkflowScheduled(event *history.Event, a *history.SubWorkflowScheduledAttributes) error {
	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", fmt.Sprintf("sub-workflow %q scheduled", a.Name))
	}

	sswc, ok := c.(*command.ScheduleSubWorkflowCommand)
	if !ok {
		return workflowerrors.NewDeterminismError(c.Type(), fmt.Sprintf("sub-workflow %q scheduled", a.Name))
	}

	if a.Name != sswc.Name {
		return workflowerrors.NewDeterminismError(fmt.Sprintf("sub-workflow %q", sswc.Name), fmt.Sprintf("sub-workflow %q", a.Name))
	}

	// When replaying, the command generated a new instance id. Ensure we use
	// the same one as when the command was originally committed.
	sswc.Instance = a.SubWorkflowInstance

	c.Commit()

	return nil
}

func (e *executor) handleSubWorkflowCancellationRequest(event *history.Event, a *history.SubWorkflowCancellationRequestedAttributes) error {
	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "sub-workflow cancellation requested")
	}

	switch cc := c.(type) {
	case *command.ScheduleSubWorkflowCommand:
		// Canceled in the same task it was scheduled in
		cc.HandleCancel()

	case *command.CancelSubWorkflowCommand:
		// Canceled in a later task via a separate cancel command
		cc.Done()

	default:
		return workflowerrors.NewDeterminismError(c.Type(), "sub-workflow cancellation requested")
	}

	return e.workflow.Continue()
}

func (e *executor) handleSubWorkflowFailed(event *history.Event, a *history.SubWorkflowFailedAttributes) error {
	f, ok := e.workflowState.FutureByScheduleEventID(event.ScheduleEventID)
	if !ok {
		return errors.New("no pending future for sub-workflow failed event")
	}

	if err := f(nil, workflowerrors.ToError(a.Error)); err != nil {
		return fmt.Errorf("setting sub-workflow failed result: %w", err)
	}

	e.workflowState.RemoveFuture(event.ScheduleEventID)

	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "sub-workflow failed")
	}

	if _, ok := c.(*command.ScheduleSubWorkflowCommand); !ok {
		return workflowerrors.NewDeterminismError(c.Type(), "sub-workflow failed")
	}

	c.Done()

	return e.workflow.Continue()
}

func (e *executor) handleSubWorkflowCompleted(event *history.Event, a *history.SubWorkflowCompletedAttributes) error {
	f, ok := e.workflowState.FutureByScheduleEventID(event.ScheduleEventID)
	if !ok {
		return errors.New("no pending future for sub-workflow completed event")
	}

	if err := f(a.Result, nil); err != nil {
		return fmt.Errorf("setting sub-workflow completed result: %w", err)
	}

	e.workflowState.RemoveFuture(event.ScheduleEventID)

	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "sub-workflow completed")
	}

	if _, ok := c.(*command.ScheduleSubWorkflowCommand); !ok {
		return workflowerrors.NewDeterminismError(c.Type(), "sub-workflow completed")
	}

	c.Done()

	return e.workflow.Continue()
}

func (e *executor) handleSignalReceived(event *history.Event, a *history.SignalReceivedAttributes) error {
	if h, ok := e.workflowState.Handlers().Handler(workflowstate.HandlerKind_Signal, a.Name); ok {
		e.spawnSignalHandler(h, a.Arg)
	} else {
		// Deliver to the named signal channel, or buffer until a channel or
		// handler exists
		workflowstate.ReceiveSignal(e.workflowState, a.Name, a.Arg)
	}

	return e.workflow.Continue()
}

func (e *executor) handleSignalWorkflow(event *history.Event, a *history.SignalWorkflowAttributes) error {
	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", fmt.Sprintf("signal %q sent", a.Name))
	}

	swc, ok := c.(*command.SignalWorkflowCommand)
	if !ok {
		return workflowerrors.NewDeterminismError(c.Type(), fmt.Sprintf("signal %q sent", a.Name))
	}

	if a.Name != swc.Name {
		return workflowerrors.NewDeterminismError(fmt.Sprintf("signal %q", swc.Name), fmt.Sprintf("signal %q", a.Name))
	}

	swc.Done()

	return nil
}

func (e *executor) handleSideEffectResult(event *history.Event, a *history.SideEffectResultAttributes) error {
	f, ok := e.workflowState.FutureByScheduleEventID(event.ScheduleEventID)
	if !ok {
		return errors.New("no pending future for side effect result event")
	}

	if err := f(a.Result, nil); err != nil {
		return fmt.Errorf("setting side effect result: %w", err)
	}

	e.workflowState.RemoveFuture(event.ScheduleEventID)

	return e.workflow.Continue()
}

func (e *executor) handleWorkflowUpdateRequested(event *history.Event, a *history.WorkflowUpdateRequestedAttributes) error {
	h, ok := e.workflowState.Handlers().Handler(workflowstate.HandlerKind_Update, a.Name)
	if !ok {
		e.rejectUpdate(a.UpdateID, fmt.Errorf("update handler %q not registered", a.Name))
		return nil
	}

	if h.Validator.IsValid() {
		// Validators run inline against current state; they must not suspend
		// and must not mutate workflow state
		if _, err := e.invokeInline(h.Validator, a.Input); err != nil {
			e.rejectUpdate(a.UpdateID, err)
			return nil
		}
	}

	// Accepted; run the handler as a coroutine, its outcome completes the
	// update
	updateID := a.UpdateID
	input := a.Input
	fn := h.Fn

	e.workflow.NewCoroutine(e.handlersCtx, func(ctx sync.Context) error {
		result, err := e.invokeHandler(ctx, fn, input)

		scheduleEventID := e.workflowState.GetNextScheduleEventID()
		e.workflowState.AddCommand(
			command.NewCompleteUpdateCommand(scheduleEventID, updateID, result, workflowerrors.FromError(err)))

		return nil
	})

	return e.workflow.Continue()
}

func (e *executor) handleWorkflowUpdateRejected(event *history.Event, a *history.WorkflowUpdateRejectedAttributes) error {
	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "update rejected")
	}

	ruc, ok := c.(*command.RejectUpdateCommand)
	if !ok {
		return workflowerrors.NewDeterminismError(c.Type(), "update rejected")
	}

	if ruc.UpdateID != a.UpdateID {
		return workflowerrors.NewDeterminismError(
			fmt.Sprintf("update %q rejected", ruc.UpdateID), fmt.Sprintf("update %q rejected", a.UpdateID))
	}

	ruc.Done()

	return nil
}

func (e *executor) handleWorkflowUpdateCompleted(event *history.Event, a *history.WorkflowUpdateCompletedAttributes) error {
	c := e.workflowState.CommandByScheduleEventID(event.ScheduleEventID)
	if c == nil {
		return workflowerrors.NewDeterminismError("no command", "update completed")
	}

	cuc, ok := c.(*command.CompleteUpdateCommand)
	if !ok {
		return workflowerrors.NewDeterminismError(c.Type(), "update completed")
	}

	if cuc.UpdateID != a.UpdateID {
		return workflowerrors.NewDeterminismError(
			fmt.Sprintf("update %q completed", cuc.UpdateID), fmt.Sprintf("update %q completed", a.UpdateID))
	}

	cuc.Done()

	return nil
}

func (e *executor) rejectUpdate(updateID string, err error) {
	scheduleEventID := e.workflowState.GetNextScheduleEventID()
	e.workflowState.AddCommand(
		command.NewRejectUpdateCommand(scheduleEventID, updateID, workflowerrors.FromError(err)))
}

func (e *executor) spawnSignalHandler(h *workflowstate.Handler, arg payload.Payload) {
	fn := h.Fn
	name := h.Name

	e.workflow.NewCoroutine(e.handlersCtx, func(ctx sync.Context) error {
		if _, err := e.invokeHandler(ctx, fn, arg); err != nil {
			return fmt.Errorf("signal handler %q: %w", name, err)
		}

		return nil
	})
}

func (e *executor) dispatchBufferedSignals() error {
	for _, name := range workflowstate.PendingSignalNames(e.workflowState) {
		h, ok := e.workflowState.Handlers().Handler(workflowstate.HandlerKind_Signal, name)
		if !ok {
			continue
		}

		for _, arg := range workflowstate.DrainPendingSignals(e.workflowState, name) {
			e.spawnSignalHandler(h, arg)
		}
	}

	return e.workflow.Continue()
}

// invokeHandler calls a signal or update handler from within a coroutine.
// Panics in handler code become handler errors, they don't abort the
// execution.
func (e *executor) invokeHandler(ctx sync.Context, fn reflect.Value, input payload.Payload) (result payload.Payload, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = workflowerrors.NewPanicError(fmt.Sprintf("handler panicked: %v", p))
		}
	}()

	return e.callHandler(ctx, fn, input)
}

// invokeInline calls a query handler or update validator synchronously,
// outside any coroutine. Suspension attempts panic and are reported as
// errors.
func (e *executor) invokeInline(fn reflect.Value, input payload.Payload) (result payload.Payload, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler must not block or panic: %v", p)
		}
	}()

	return e.callHandler(e.workflowCtx, fn, input)
}

func (e *executor) callHandler(ctx sync.Context, fn reflect.Value, input payload.Payload) (payload.Payload, error) {
	var inputs []payload.Payload
	if handlerArgs(fn.Type()) > 0 {
		inputs = []payload.Payload{input}
	}

	argv, addContext, err := args.InputsToArgs(e.cv, fn, inputs)
	if err != nil {
		return nil, fmt.Errorf("converting handler inputs: %w", err)
	}

	if addContext {
		argv[0] = reflect.ValueOf(ctx)
	}

	return handlerResult(e.cv, fn.Type(), fn.Call(argv))
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func handlerArgs(fnType reflect.Type) int {
	n := fnType.NumIn()
	if n > 0 && args.IsOwnContext(fnType.In(0)) {
		n--
	}

	return n
}

func handlerResult(cv converter.Converter, fnType reflect.Type, r []reflect.Value) (payload.Payload, error) {
	if len(r) == 0 {
		return nil, nil
	}

	var err error
	if fnType.Out(fnType.NumOut() - 1).Implements(errorType) {
		if !r[len(r)-1].IsNil() {
			err = r[len(r)-1].Interface().(error)
		}

		r = r[:len(r)-1]
	}

	if len(r) == 0 {
		return nil, err
	}

	result, cerr := cv.To(r[0].Interface())
	if cerr != nil {
		return nil, fmt.Errorf("converting handler result: %w", cerr)
	}

	return result, err
}

func (e *executor) hasCompletionCommand() bool {
	for _, c := range e.workflowState.Commands() {
		switch c.(type) {
		case *command.CompleteWorkflowCommand, *command.ContinueAsNewCommand:
			return true
		}
	}

	return false
}

func (e *executor) workflowCompleted(result payload.Payload, wfErr error) {
	eventID := e.workflowState.GetNextScheduleEventID()

	cmd := command.NewCompleteWorkflowCommand(eventID, e.workflowState.Instance(), result, workflowerrors.FromError(wfErr))
	e.workflowState.AddCommand(cmd)
}

func (e *executor) workflowRestarted(result payload.Payload, continueAsNew *continueasnew.Error) {
	eventID := e.workflowState.GetNextScheduleEventID()

	cmd := command.NewContinueAsNewCommand(
		eventID, e.workflowState.Instance(), result, e.workflowName, continueAsNew.Metadata, continueAsNew.Inputs)
	e.workflowState.AddCommand(cmd)
}

func (e *executor) nextSequenceID() int64 {
	e.lastSequenceID++
	return e.lastSequenceID
}

func (e *executor) createNewEvent(eventType history.EventType, attributes interface{}, opts ...history.HistoryEventOption) *history.Event {
	return history.NewPendingEvent(
		e.clock.Now(),
		eventType,
		attributes,
		opts...,
	)
}
