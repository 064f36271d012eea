package history

import (
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/internal/workflowerrors"
)

type ExecutionCompletedAttributes struct {
	Result payload.Payload       `json:"result,omitempty"`
	Error  *workflowerrors.Error `json:"error,omitempty"`
}
