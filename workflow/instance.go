package workflow

import (
	"github.com/durableio/rewind/internal/workflowstate"
)

// WorkflowInstance returns the current workflow instance.
func WorkflowInstance(ctx Context) *Instance {
	return workflowstate.WorkflowState(ctx).Instance()
}
