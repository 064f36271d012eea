package history

import "github.com/durableio/rewind/core"

// WorkflowEvent is an event addressed to a specific workflow instance.
type WorkflowEvent struct {
	WorkflowInstance *core.WorkflowInstance `json:"workflow_instance,omitempty"`

	HistoryEvent *Event `json:"history_event,omitempty"`
}
