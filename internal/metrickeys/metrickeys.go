package metrickeys

const (
	WorkflowInstanceCreated       = "workflow_instance_created"
	WorkflowInstanceCacheSize     = "workflow_instance_cache_size"
	WorkflowInstanceCacheEviction = "workflow_instance_cache_eviction"

	WorkflowTaskProcessed = "workflow_task_processed"
	ActivityTaskProcessed = "activity_task_processed"

	EvictionReason = "eviction_reason"
	Backend        = "backend"
)
