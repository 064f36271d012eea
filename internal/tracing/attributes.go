package tracing

// Span attribute keys shared by workflow and activity task spans.
const (
	WorkflowInstanceID = "rewind.instance_id"
	WorkflowExecutionID = "rewind.execution_id"
	WorkflowName       = "rewind.workflow_name"

	ActivityName   = "rewind.activity_name"
	ActivityTaskID = "rewind.activity_task_id"

	WorkflowTaskID = "rewind.workflow_task_id"

	SignalName = "rewind.signal_name"
	UpdateName = "rewind.update_name"
	QueryName  = "rewind.query_name"
)
