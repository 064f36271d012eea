package history

import (
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/backend/payload"
)

type ActivityScheduledAttributes struct {
	Name string `json:"name,omitempty"`

	Inputs []payload.Payload `json:"inputs,omitempty"`

	Metadata *metadata.WorkflowMetadata `json:"metadata,omitempty"`
}
