package workflow

import (
	"github.com/durableio/rewind/internal/workflowstate"
)

type UpdateHandlerOption func(*updateHandlerOptions)

type updateHandlerOptions struct {
	validator interface{}
}

// WithUpdateValidator attaches a validator to an update handler. The validator
// receives the same arguments as the handler and must be side-effect free; a
// non-nil error rejects the update without mutating workflow state.
func WithUpdateValidator(validator interface{}) UpdateHandlerOption {
	return func(o *updateHandlerOptions) {
		o.validator = validator
	}
}

// HandleSignal registers a signal handler for the given name. Incoming signals
// with that name run the handler as a new coroutine instead of being delivered
// to a signal channel. Registration is effective for subsequent dispatch only.
func HandleSignal(ctx Context, name string, handler interface{}) error {
	return workflowstate.WorkflowState(ctx).Handlers().Add(workflowstate.HandlerKind_Signal, name, handler)
}

// HandleQuery registers a query handler for the given name. Query handlers run
// synchronously against quiescent workflow state and must not suspend.
func HandleQuery(ctx Context, name string, handler interface{}) error {
	return workflowstate.WorkflowState(ctx).Handlers().Add(workflowstate.HandlerKind_Query, name, handler)
}

// HandleUpdate registers an update handler for the given name.
func HandleUpdate(ctx Context, name string, handler interface{}, opts ...UpdateHandlerOption) error {
	options := &updateHandlerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return workflowstate.WorkflowState(ctx).Handlers().AddUpdate(name, handler, options.validator)
}
