package history

import "github.com/durableio/rewind/internal/workflowerrors"

type WorkflowUpdateRejectedAttributes struct {
	UpdateID string `json:"update_id,omitempty"`

	Error *workflowerrors.Error `json:"error,omitempty"`
}
