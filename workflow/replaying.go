package workflow

import (
	"github.com/durableio/rewind/internal/workflowstate"
)

// Replaying returns whether the workflow is currently replaying recorded
// history.
func Replaying(ctx Context) bool {
	return workflowstate.WorkflowState(ctx).Replaying()
}
