package history

import (
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/core"
)

type SubWorkflowScheduledAttributes struct {
	SubWorkflowInstance *core.WorkflowInstance `json:"sub_workflow_instance,omitempty"`

	Name string `json:"name,omitempty"`

	Inputs []payload.Payload `json:"inputs,omitempty"`

	Metadata *metadata.WorkflowMetadata `json:"metadata,omitempty"`
}
