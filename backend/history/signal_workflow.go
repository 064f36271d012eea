package history

import "github.com/durableio/rewind/backend/payload"

// SignalWorkflowAttributes records that this instance asked the host to
// deliver a signal to another workflow instance.
type SignalWorkflowAttributes struct {
	Name string `json:"name,omitempty"`

	Arg payload.Payload `json:"arg,omitempty"`
}
