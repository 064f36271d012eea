package log

const (
	InstanceIDKey  = "instance_id"
	ExecutionIDKey = "execution_id"

	WorkflowNameKey = "workflow_name"
	ActivityNameKey = "activity_name"
	ActivityIDKey   = "activity_id"
	SignalNameKey   = "signal_name"
	UpdateNameKey   = "update_name"
	UpdateIDKey     = "update_id"
	QueryNameKey    = "query_name"

	TaskIDKey             = "task_id"
	TaskLastSequenceIDKey = "task_last_sequence_id"
	TaskSequenceIDKey     = "task_sequence_id"
	LocalSequenceIDKey    = "local_sequence_id"

	EventIDKey         = "event_id"
	EventTypeKey       = "event_type"
	SeqIDKey           = "sequence_id"
	ScheduleEventIDKey = "schedule_event_id"
	ExecutedEventsKey  = "executed_events"

	IsReplayingKey = "is_replaying"

	WorkflowInstanceStateKey = "workflow_instance_state"
	ContinuedExecutionIDKey  = "continued_execution_id"

	DurationKey = "duration_ms"
	NowKey      = "now"
	AtKey       = "at"
)
