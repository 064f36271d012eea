package workflow

import (
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/core"
)

type (
	Instance = core.WorkflowInstance
	Metadata = metadata.WorkflowMetadata

	// Workflow is a workflow function or a pointer to a workflow struct type.
	Workflow = interface{}

	// Activity is an activity function or a struct whose exported methods are
	// activities.
	Activity = interface{}
)
