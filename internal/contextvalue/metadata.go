package contextvalue

import (
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/internal/sync"
)

type metadataKey struct{}

// WithWorkflowMetadata attaches the instance metadata to the workflow context.
// Set once by the executor when execution starts.
func WithWorkflowMetadata(ctx sync.Context, wm *metadata.WorkflowMetadata) sync.Context {
	return sync.WithValue(ctx, metadataKey{}, wm)
}

func WorkflowMetadata(ctx sync.Context) *metadata.WorkflowMetadata {
	if wm, ok := ctx.Value(metadataKey{}).(*metadata.WorkflowMetadata); ok {
		return wm
	}

	return &metadata.WorkflowMetadata{}
}
