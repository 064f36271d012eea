package workflow

import (
	"math/rand"

	"github.com/durableio/rewind/internal/workflowstate"
)

// Random returns a deterministic source of randomness for this execution. It
// is seeded from the execution id, so the same execution always observes the
// same sequence, including during replay. Do not share it across instances.
func Random(ctx Context) *rand.Rand {
	return workflowstate.WorkflowState(ctx).Rand()
}
