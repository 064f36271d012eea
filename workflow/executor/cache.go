package executor

import (
	"context"

	"github.com/durableio/rewind/core"
)

// ExecutorCache keeps warm executors around between tasks so subsequent tasks
// for the same instance don't have to replay the full history.
type ExecutorCache interface {
	Store(ctx context.Context, instance *core.WorkflowInstance, workflow WorkflowExecutor) error
	Evict(ctx context.Context, instance *core.WorkflowInstance) error
	Get(ctx context.Context, instance *core.WorkflowInstance) (WorkflowExecutor, bool, error)
	StartEviction(ctx context.Context)
}
