package history

import "github.com/durableio/rewind/backend/payload"

type WorkflowUpdateRequestedAttributes struct {
	// Name of the update handler to invoke.
	Name string `json:"name,omitempty"`

	// UpdateID correlates the request with its rejection or completion event.
	UpdateID string `json:"update_id,omitempty"`

	Input payload.Payload `json:"input,omitempty"`
}
