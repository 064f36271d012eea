package history

import (
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/backend/payload"
)

type ExecutionStartedAttributes struct {
	Name string `json:"name,omitempty"`

	Metadata *metadata.WorkflowMetadata `json:"metadata,omitempty"`

	Inputs []payload.Payload `json:"inputs,omitempty"`
}
