package workflow

import (
	"log/slog"

	"github.com/durableio/rewind/internal/workflowstate"
)

// Logger returns a logger scoped to the current instance. Records logged while
// the workflow is replaying are suppressed, so every logical step logs exactly
// once.
func Logger(ctx Context) *slog.Logger {
	return workflowstate.WorkflowState(ctx).Logger()
}
