package backend

import (
	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/core"
)

// WorkflowTask is a unit of work for a workflow instance. It carries the new
// events to apply since the last checkpoint.
type WorkflowTask struct {
	// ID is an identifier for this task. It's set by the backend
	ID string

	// WorkflowInstance is the workflow instance that this task is for
	WorkflowInstance *core.WorkflowInstance

	WorkflowInstanceState core.WorkflowInstanceState

	Metadata *metadata.WorkflowMetadata

	// LastSequenceID is the sequence ID of the newest event in the workflow instance's history
	LastSequenceID int64

	// NewEvents are new events since the last task execution
	NewEvents []*history.Event

	// CustomData is backend specific data, only the producer of the task should rely on this
	CustomData any
}

// ActivityTask is a single activity execution request.
type ActivityTask struct {
	ID string

	WorkflowInstance *core.WorkflowInstance

	Metadata *metadata.WorkflowMetadata

	Event *history.Event
}
