package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/core"
	"github.com/durableio/rewind/internal/tracing"
	"github.com/durableio/rewind/workflow"
	"github.com/durableio/rewind/workflow/executor"
)

// staticHistoryProvider serves an already fetched history to a replay executor.
type staticHistoryProvider struct {
	history []*history.Event
}

func (p staticHistoryProvider) GetWorkflowInstanceHistory(ctx context.Context, instance *core.WorkflowInstance, lastSequenceID *int64) ([]*history.Event, error) {
	if lastSequenceID == nil {
		return p.history, nil
	}

	events := make([]*history.Event, 0, len(p.history))
	for _, event := range p.history {
		if event.SequenceID > *lastSequenceID {
			events = append(events, event)
		}
	}

	return events, nil
}

// QueryWorkflow executes a query handler against the current state of a
// workflow instance. The instance's history is fetched and replayed in a
// throwaway executor, so the client's registry must contain the workflow.
func QueryWorkflow[T any](ctx context.Context, c *Client, instance *workflow.Instance, name string, arg any) (T, error) {
	if c.registry == nil {
		return *new(T), errors.New("client has no registry, pass WithRegistry to query workflows")
	}

	ctx, span := c.backend.Tracer().Start(ctx, fmt.Sprintf("QueryWorkflow: %s", name), trace.WithAttributes(
		attribute.String(tracing.WorkflowInstanceID, instance.InstanceID),
		attribute.String(tracing.QueryName, name),
	))
	defer span.End()

	h, err := c.backend.GetWorkflowInstanceHistory(ctx, instance, nil)
	if err != nil {
		return *new(T), fmt.Errorf("getting workflow history: %w", err)
	}

	if len(h) == 0 {
		return *new(T), errors.New("workflow instance has no history to replay")
	}

	md := &workflow.Metadata{}
	if a, ok := h[0].Attributes.(*history.ExecutionStartedAttributes); ok && a.Metadata != nil {
		md = a.Metadata
	}

	e, err := executor.NewExecutor(
		c.backend.Options().Logger,
		c.backend.Tracer(),
		c.registry,
		c.backend.Options().Converter,
		staticHistoryProvider{history: h},
		instance,
		md,
		clock.New(),
		executor.DefaultOptions,
	)
	if err != nil {
		return *new(T), fmt.Errorf("creating replay executor: %w", err)
	}
	defer e.Close()

	task := &backend.WorkflowTask{
		ID:                    uuid.NewString(),
		WorkflowInstance:      instance,
		WorkflowInstanceState: core.WorkflowInstanceStateActive,
		Metadata:              md,
		LastSequenceID:        h[len(h)-1].SequenceID,
	}

	if _, err := e.ExecuteTask(ctx, task); err != nil {
		return *new(T), fmt.Errorf("replaying workflow history: %w", err)
	}

	input, err := c.backend.Options().Converter.To(arg)
	if err != nil {
		return *new(T), fmt.Errorf("converting query argument: %w", err)
	}

	result, err := e.ExecuteQuery(ctx, name, input)
	if err != nil {
		return *new(T), err
	}

	var r T
	if err := c.backend.Options().Converter.From(result, &r); err != nil {
		return *new(T), fmt.Errorf("converting query result: %w", err)
	}

	return r, nil
}
