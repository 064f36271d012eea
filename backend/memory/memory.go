package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/backend/metrics"
	"github.com/durableio/rewind/core"
	"github.com/durableio/rewind/internal/metrickeys"
)

// instanceState is the in-memory record of one workflow execution.
type instanceState struct {
	instance *core.WorkflowInstance
	metadata *metadata.WorkflowMetadata
	state    core.WorkflowInstanceState

	history       []*history.Event
	pendingEvents []*history.Event

	lockedUntil *time.Time
}

func (is *instanceState) lastSequenceID() int64 {
	if len(is.history) == 0 {
		return 0
	}

	return is.history[len(is.history)-1].SequenceID
}

// hasVisiblePendingEvents reports whether any pending event is deliverable at
// the given time.
func (is *instanceState) hasVisiblePendingEvents(now time.Time) bool {
	for _, e := range is.pendingEvents {
		if e.VisibleAt == nil || !e.VisibleAt.After(now) {
			return true
		}
	}

	return false
}

type activityState struct {
	task        *backend.ActivityTask
	lockedUntil *time.Time
}

type memoryBackend struct {
	mu sync.Mutex

	// instances maps instance id to its executions, in creation order. The
	// last entry is the current execution.
	instances map[string][]*instanceState

	activities []*activityState

	workerName string
	options    *backend.Options
}

var _ backend.Backend = (*memoryBackend)(nil)

// NewMemoryBackend returns a Backend that keeps all state in process memory.
// Intended for tests and single-process hosts.
func NewMemoryBackend(opts ...backend.BackendOption) backend.Backend {
	options := backend.ApplyOptions(opts...)

	return &memoryBackend{
		instances:  make(map[string][]*instanceState),
		workerName: fmt.Sprintf("worker-%v", uuid.NewString()),
		options:    &options,
	}
}

func (mb *memoryBackend) Tracer() trace.Tracer {
	return mb.options.TracerProvider.Tracer(backend.TracerName)
}

func (mb *memoryBackend) Metrics() metrics.Client {
	return mb.options.Metrics.WithTags(metrics.Tags{metrickeys.Backend: "memory"})
}

func (mb *memoryBackend) Options() *backend.Options {
	return mb.options
}

func (mb *memoryBackend) Close() error {
	return nil
}

func (mb *memoryBackend) CreateWorkflowInstance(ctx context.Context, instance *core.WorkflowInstance, event *history.Event) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	return mb.createInstance(instance, event, false)
}

// createInstance adds an execution record with the given initial pending
// event. Caller must hold the lock.
func (mb *memoryBackend) createInstance(instance *core.WorkflowInstance, event *history.Event, ignoreDuplicate bool) error {
	for _, is := range mb.instances[instance.InstanceID] {
		if is.instance.ExecutionID == instance.ExecutionID {
			if ignoreDuplicate {
				return nil
			}

			return backend.ErrInstanceAlreadyExists
		}
	}

	var md *metadata.WorkflowMetadata
	if a, ok := event.Attributes.(*history.ExecutionStartedAttributes); ok {
		md = a.Metadata
	}

	mb.instances[instance.InstanceID] = append(mb.instances[instance.InstanceID], &instanceState{
		instance:      instance,
		metadata:      md,
		state:         core.WorkflowInstanceStateActive,
		pendingEvents: []*history.Event{event},
	})

	mb.options.Metrics.Counter(metrickeys.WorkflowInstanceCreated, metrics.Tags{}, 1)

	return nil
}

// activeExecution returns the current execution of an instance if it is not
// finished. Caller must hold the lock.
func (mb *memoryBackend) activeExecution(instanceID string) *instanceState {
	executions := mb.instances[instanceID]
	if len(executions) == 0 {
		return nil
	}

	is := executions[len(executions)-1]
	if is.state == core.WorkflowInstanceStateFinished {
		return nil
	}

	return is
}

func (mb *memoryBackend) findExecution(instance *core.WorkflowInstance) *instanceState {
	for _, is := range mb.instances[instance.InstanceID] {
		if is.instance.ExecutionID == instance.ExecutionID {
			return is
		}
	}

	return nil
}

func (mb *memoryBackend) CancelWorkflowInstance(ctx context.Context, instance *core.WorkflowInstance, cancelEvent *history.Event) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	is := mb.findExecution(instance)
	if is == nil {
		return backend.ErrInstanceNotFound
	}

	is.pendingEvents = append(is.pendingEvents, cancelEvent)

	// Cascade the cancellation to any active sub-workflows
	mb.cancelSubWorkflows(instance, cancelEvent)

	return nil
}

func (mb *memoryBackend) cancelSubWorkflows(parent *core.WorkflowInstance, cancelEvent *history.Event) {
	for _, executions := range mb.instances {
		for _, is := range executions {
			if is.state == core.WorkflowInstanceStateFinished {
				continue
			}

			p := is.instance.Parent
			if p != nil && p.InstanceID == parent.InstanceID && p.ExecutionID == parent.ExecutionID {
				is.pendingEvents = append(is.pendingEvents, cancelEvent)
				mb.cancelSubWorkflows(is.instance, cancelEvent)
			}
		}
	}
}

func (mb *memoryBackend) GetWorkflowInstanceState(ctx context.Context, instance *core.WorkflowInstance) (core.WorkflowInstanceState, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	is := mb.findExecution(instance)
	if is == nil {
		return core.WorkflowInstanceStateActive, backend.ErrInstanceNotFound
	}

	return is.state, nil
}

func (mb *memoryBackend) GetWorkflowInstanceHistory(ctx context.Context, instance *core.WorkflowInstance, lastSequenceID *int64) ([]*history.Event, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	is := mb.findExecution(instance)
	if is == nil {
		return nil, backend.ErrInstanceNotFound
	}

	var h []*history.Event
	for _, e := range is.history {
		if lastSequenceID != nil && e.SequenceID <= *lastSequenceID {
			continue
		}

		h = append(h, e)
	}

	return h, nil
}

func (mb *memoryBackend) SignalWorkflow(ctx context.Context, instanceID string, event *history.Event) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	is := mb.activeExecution(instanceID)
	if is == nil {
		return backend.ErrInstanceNotFound
	}

	is.pendingEvents = append(is.pendingEvents, event)

	return nil
}

func (mb *memoryBackend) GetWorkflowTask(ctx context.Context) (*backend.WorkflowTask, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	now := time.Now()

	for _, executions := range mb.instances {
		for _, is := range executions {
			if is.state != core.WorkflowInstanceStateActive {
				continue
			}

			if is.lockedUntil != nil && is.lockedUntil.After(now) {
				continue
			}

			if !is.hasVisiblePendingEvents(now) {
				continue
			}

			lockedUntil := now.Add(mb.options.WorkflowLockTimeout)
			is.lockedUntil = &lockedUntil

			// Hand out only events visible right now; timer events stay
			// pending until they are due
			var newEvents, remaining []*history.Event
			for _, e := range is.pendingEvents {
				if e.VisibleAt == nil || !e.VisibleAt.After(now) {
					newEvents = append(newEvents, e)
				} else {
					remaining = append(remaining, e)
				}
			}
			is.pendingEvents = remaining

			return &backend.WorkflowTask{
				ID:                    uuid.NewString(),
				WorkflowInstance:      is.instance,
				WorkflowInstanceState: is.state,
				Metadata:              is.metadata,
				LastSequenceID:        is.lastSequenceID(),
				NewEvents:             newEvents,
			}, nil
		}
	}

	return nil, nil
}

func (mb *memoryBackend) CompleteWorkflowTask(
	ctx context.Context, task *backend.WorkflowTask, state core.WorkflowInstanceState,
	executedEvents, activityEvents, timerEvents []*history.Event, workflowEvents []*history.WorkflowEvent,
) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	is := mb.findExecution(task.WorkflowInstance)
	if is == nil {
		return backend.ErrInstanceNotFound
	}

	is.lockedUntil = nil
	is.state = state
	is.history = append(is.history, executedEvents...)

	// Schedule activities
	for _, event := range activityEvents {
		mb.activities = append(mb.activities, &activityState{
			task: &backend.ActivityTask{
				ID:               event.ID,
				WorkflowInstance: is.instance,
				Metadata:         is.metadata,
				Event:            event,
			},
		})
	}

	// Re-queue timers; they become visible once due
	is.pendingEvents = append(is.pendingEvents, timerEvents...)

	// Route events to other workflow instances, creating them if needed
	for targetInstance, events := range history.EventsByWorkflowInstance(workflowEvents) {
		target := targetInstance

		for _, event := range events {
			if event.HistoryEvent.Type == history.EventType_WorkflowExecutionStarted {
				if err := mb.createInstance(&target, event.HistoryEvent, true); err != nil {
					return err
				}

				continue
			}

			tis := mb.findExecution(&target)
			if tis == nil {
				// Parent result delivery races instance removal; drop silently
				if target.InstanceID == task.WorkflowInstance.InstanceID {
					tis = is
				} else {
					continue
				}
			}

			tis.pendingEvents = append(tis.pendingEvents, event.HistoryEvent)
		}
	}

	mb.options.Metrics.Counter(metrickeys.WorkflowTaskProcessed, metrics.Tags{}, 1)

	return nil
}

func (mb *memoryBackend) GetActivityTask(ctx context.Context) (*backend.ActivityTask, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	now := time.Now()

	for _, as := range mb.activities {
		if as.lockedUntil != nil && as.lockedUntil.After(now) {
			continue
		}

		lockedUntil := now.Add(mb.options.ActivityLockTimeout)
		as.lockedUntil = &lockedUntil

		return as.task, nil
	}

	return nil, nil
}

func (mb *memoryBackend) CompleteActivityTask(ctx context.Context, task *backend.ActivityTask, result *history.Event) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	found := false
	for i, as := range mb.activities {
		if as.task.ID == task.ID {
			mb.activities = append(mb.activities[:i], mb.activities[i+1:]...)
			found = true
			break
		}
	}

	if !found {
		return fmt.Errorf("activity task %q not found", task.ID)
	}

	is := mb.findExecution(task.WorkflowInstance)
	if is == nil {
		return backend.ErrInstanceNotFound
	}

	is.pendingEvents = append(is.pendingEvents, result)

	mb.options.Metrics.Counter(metrickeys.ActivityTaskProcessed, metrics.Tags{}, 1)

	return nil
}
