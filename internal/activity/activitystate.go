package activity

import (
	"context"
	"log/slog"

	"github.com/durableio/rewind/core"
	"github.com/durableio/rewind/internal/log"
)

type ActivityState struct {
	ActivityID string
	Instance   *core.WorkflowInstance
	Logger     *slog.Logger
}

func NewActivityState(activityID string, instance *core.WorkflowInstance, logger *slog.Logger) *ActivityState {
	return &ActivityState{
		activityID,
		instance,
		logger.With(
			log.ActivityIDKey, activityID,
			log.InstanceIDKey, instance.InstanceID,
			log.ExecutionIDKey, instance.ExecutionID,
		)}
}

type key int

var activityCtxKey key

func WithActivityState(ctx context.Context, as *ActivityState) context.Context {
	return context.WithValue(ctx, activityCtxKey, as)
}

func GetActivityState(ctx context.Context) *ActivityState {
	return ctx.Value(activityCtxKey).(*ActivityState)
}
