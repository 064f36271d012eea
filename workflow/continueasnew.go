package workflow

import (
	"fmt"

	a "github.com/durableio/rewind/internal/args"
	"github.com/durableio/rewind/internal/continueasnew"
	"github.com/durableio/rewind/internal/contextvalue"
)

// ContinueAsNew finishes the current execution and restarts the workflow with
// the given arguments and a fresh history. It never returns; control leaves
// the workflow function immediately.
func ContinueAsNew(ctx Context, args ...interface{}) {
	inputs, err := a.ArgsToInputs(GetConverter(ctx), args...)
	if err != nil {
		panic(fmt.Errorf("converting inputs for continuing workflow execution: %w", err))
	}

	// Recovered by the task executor, control does not return to workflow code
	panic(continueasnew.NewError(contextvalue.WorkflowMetadata(ctx), inputs))
}
