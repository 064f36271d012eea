package history

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type EventType uint

const (
	_ EventType = iota

	EventType_WorkflowExecutionStarted
	EventType_WorkflowExecutionFinished
	EventType_WorkflowExecutionContinuedAsNew
	EventType_WorkflowExecutionCanceled

	EventType_WorkflowTaskStarted

	EventType_SubWorkflowScheduled
	EventType_SubWorkflowCancellationRequested
	EventType_SubWorkflowCompleted
	EventType_SubWorkflowFailed

	EventType_ActivityScheduled
	EventType_ActivityCompleted
	EventType_ActivityFailed

	EventType_TimerScheduled
	EventType_TimerFired
	EventType_TimerCanceled

	EventType_SignalReceived
	EventType_SignalWorkflow

	EventType_WorkflowUpdateRequested
	EventType_WorkflowUpdateRejected
	EventType_WorkflowUpdateCompleted

	EventType_SideEffectResult
)

func (et EventType) String() string {
	switch et {
	case EventType_WorkflowExecutionStarted:
		return "WorkflowExecutionStarted"
	case EventType_WorkflowExecutionFinished:
		return "WorkflowExecutionFinished"
	case EventType_WorkflowExecutionContinuedAsNew:
		return "WorkflowExecutionContinuedAsNew"
	case EventType_WorkflowExecutionCanceled:
		return "WorkflowExecutionCanceled"

	case EventType_WorkflowTaskStarted:
		return "WorkflowTaskStarted"

	case EventType_SubWorkflowScheduled:
		return "SubWorkflowScheduled"
	case EventType_SubWorkflowCancellationRequested:
		return "SubWorkflowCancellationRequested"
	case EventType_SubWorkflowCompleted:
		return "SubWorkflowCompleted"
	case EventType_SubWorkflowFailed:
		return "SubWorkflowFailed"

	case EventType_ActivityScheduled:
		return "ActivityScheduled"
	case EventType_ActivityCompleted:
		return "ActivityCompleted"
	case EventType_ActivityFailed:
		return "ActivityFailed"

	case EventType_TimerScheduled:
		return "TimerScheduled"
	case EventType_TimerFired:
		return "TimerFired"
	case EventType_TimerCanceled:
		return "TimerCanceled"

	case EventType_SignalReceived:
		return "SignalReceived"
	case EventType_SignalWorkflow:
		return "SignalWorkflow"

	case EventType_WorkflowUpdateRequested:
		return "WorkflowUpdateRequested"
	case EventType_WorkflowUpdateRejected:
		return "WorkflowUpdateRejected"
	case EventType_WorkflowUpdateCompleted:
		return "WorkflowUpdateCompleted"

	case EventType_SideEffectResult:
		return "SideEffectResult"

	default:
		return "Unknown"
	}
}

type Event struct {
	// ID is a unique identifier for this event
	ID string `json:"id,omitempty"`

	Type EventType `json:"type,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty"`

	// SequenceID is the position of this event in the instance history. It is only
	// set for events that have been executed and checkpointed.
	SequenceID int64 `json:"sid,omitempty"`

	// ScheduleEventID correlates events belonging together. For example, if a timer
	// is scheduled, the schedule event and the fired event share the same
	// ScheduleEventID. The sequence of ScheduleEventIDs is assigned deterministically
	// by the executing workflow code, never by the host.
	ScheduleEventID int64 `json:"seid,omitempty"`

	// Attributes are event type specific attributes
	Attributes interface{} `json:"attr,omitempty"`

	// VisibleAt is the point in time from which on this event may be delivered.
	// Used for timer fired events.
	VisibleAt *time.Time `json:"vat,omitempty"`
}

func (e *Event) String() string {
	return strconv.Itoa(int(e.Type))
}

type HistoryEventOption func(e *Event)

func ScheduleEventID(scheduleEventID int64) HistoryEventOption {
	return func(e *Event) {
		e.ScheduleEventID = scheduleEventID
	}
}

func VisibleAt(visibleAt time.Time) HistoryEventOption {
	return func(e *Event) {
		e.VisibleAt = &visibleAt
	}
}

// NewPendingEvent creates a new event that has not been executed and therefore has
// no sequence ID yet.
func NewPendingEvent(timestamp time.Time, eventType EventType, attributes interface{}, opts ...HistoryEventOption) *Event {
	return NewHistoryEvent(0, timestamp, eventType, attributes, opts...)
}

func NewHistoryEvent(sequenceID int64, timestamp time.Time, eventType EventType, attributes interface{}, opts ...HistoryEventOption) *Event {
	e := &Event{
		ID:         uuid.NewString(),
		SequenceID: sequenceID,
		Type:       eventType,
		Timestamp:  timestamp,
		Attributes: attributes,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func NewWorkflowCancellationEvent(timestamp time.Time) *Event {
	return NewPendingEvent(timestamp, EventType_WorkflowExecutionCanceled, &ExecutionCanceledAttributes{})
}
