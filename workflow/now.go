package workflow

import (
	"time"

	"github.com/durableio/rewind/internal/workflowstate"
)

// Now returns the current workflow time. It only advances when a new task is
// executed, never while workflow code runs, so it is safe to use in workflow
// logic.
func Now(ctx Context) time.Time {
	return workflowstate.WorkflowState(ctx).Time()
}
