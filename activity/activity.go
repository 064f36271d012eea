package activity

import (
	"context"
	"log/slog"

	"github.com/durableio/rewind/core"
	"github.com/durableio/rewind/internal/activity"
)

// Logger returns a logger with the workflow instance this activity is executed for set as default fields
func Logger(ctx context.Context) *slog.Logger {
	return activity.GetActivityState(ctx).Logger
}

// WorkflowInstance returns the workflow instance this activity is executed for.
func WorkflowInstance(ctx context.Context) *core.WorkflowInstance {
	return activity.GetActivityState(ctx).Instance
}

// ID returns the id of the current activity execution.
func ID(ctx context.Context) string {
	return activity.GetActivityState(ctx).ActivityID
}
