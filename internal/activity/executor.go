package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/converter"
	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/internal/args"
	"github.com/durableio/rewind/internal/tracing"
	"github.com/durableio/rewind/internal/workflowerrors"
	"github.com/durableio/rewind/registry"
)

type Executor struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	converter converter.Converter
	r         *registry.Registry
}

func NewExecutor(logger *slog.Logger, tracer trace.Tracer, converter converter.Converter, r *registry.Registry) *Executor {
	return &Executor{
		logger:    logger,
		tracer:    tracer,
		converter: converter,
		r:         r,
	}
}

func (e *Executor) ExecuteActivity(ctx context.Context, task *backend.ActivityTask) (payload.Payload, error) {
	a := task.Event.Attributes.(*history.ActivityScheduledAttributes)

	activity, err := e.r.GetActivity(a.Name)
	if err != nil {
		return nil, err
	}

	activityFn := reflect.ValueOf(activity)
	if activityFn.Type().Kind() != reflect.Func {
		return nil, errors.New("activity not a function")
	}

	argValues, addContext, err := args.InputsToArgs(e.converter, activityFn, a.Inputs)
	if err != nil {
		return nil, fmt.Errorf("converting activity inputs: %w", err)
	}

	// Add activity state to context
	as := NewActivityState(task.Event.ID, task.WorkflowInstance, e.logger)
	activityCtx := WithActivityState(ctx, as)

	activityCtx, span := e.tracer.Start(activityCtx, "ActivityTaskExecution", trace.WithAttributes(
		attribute.String(tracing.ActivityName, a.Name),
		attribute.String(tracing.WorkflowInstanceID, task.WorkflowInstance.InstanceID),
		attribute.String(tracing.ActivityTaskID, task.ID),
	))
	defer span.End()

	if addContext {
		argValues[0] = reflect.ValueOf(activityCtx)
	}

	r, err := e.invokeActivity(activityFn, argValues)
	if err != nil {
		return nil, err
	}

	if len(r) < 1 || len(r) > 2 {
		return nil, errors.New("activity has to return either (error) or (<result>, error)")
	}

	var result payload.Payload

	if len(r) > 1 {
		var err error
		result, err = e.converter.To(r[0].Interface())
		if err != nil {
			return nil, fmt.Errorf("converting activity result: %w", err)
		}
	}

	errResult := r[len(r)-1]
	if errResult.IsNil() {
		return result, nil
	}

	errInterface, ok := errResult.Interface().(error)
	if !ok {
		return nil, fmt.Errorf("activity error result does not satisfy error interface (%T): %v", errResult, errResult)
	}

	return result, errInterface
}

// invokeActivity calls the activity function, turning panics into errors.
func (e *Executor) invokeActivity(fn reflect.Value, args []reflect.Value) (r []reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = workflowerrors.NewPanicError(fmt.Sprintf("activity panicked: %v", p))
		}
	}()

	r = fn.Call(args)

	return r, nil
}
