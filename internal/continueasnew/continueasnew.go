package continueasnew

import (
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/backend/payload"
)

// Error carries the inputs for the next execution of an instance. It is
// raised as a panic by workflow.ContinueAsNew so that control never returns
// to the calling workflow code, and recovered by the root task wrapper.
type Error struct {
	Metadata *metadata.WorkflowMetadata
	Inputs   []payload.Payload
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	return "ContinueAsNew"
}

func NewError(metadata *metadata.WorkflowMetadata, inputs []payload.Payload) error {
	return &Error{
		Metadata: metadata,
		Inputs:   inputs,
	}
}
