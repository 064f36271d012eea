package history

import (
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/internal/workflowerrors"
)

type WorkflowUpdateCompletedAttributes struct {
	UpdateID string `json:"update_id,omitempty"`

	Result payload.Payload       `json:"result,omitempty"`
	Error  *workflowerrors.Error `json:"error,omitempty"`
}
