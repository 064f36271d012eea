package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/internal/tracing"
	"github.com/durableio/rewind/internal/workflowerrors"
	"github.com/durableio/rewind/workflow"
)

// ErrUpdateRejected is returned when the update's validator rejected the
// request or no handler with the given name was registered.
var ErrUpdateRejected = errors.New("update rejected")

// UpdateWorkflow requests an update on a running workflow instance and waits
// for its outcome. The request travels like a signal, the result is read from
// the instance's history once the update completes or is rejected.
func UpdateWorkflow[T any](ctx context.Context, c *Client, instance *workflow.Instance, name string, arg any, timeout time.Duration) (T, error) {
	ctx, span := c.backend.Tracer().Start(ctx, fmt.Sprintf("UpdateWorkflow: %s", name), trace.WithAttributes(
		attribute.String(tracing.WorkflowInstanceID, instance.InstanceID),
		attribute.String(tracing.UpdateName, name),
	))
	defer span.End()

	input, err := c.backend.Options().Converter.To(arg)
	if err != nil {
		return *new(T), fmt.Errorf("converting update argument: %w", err)
	}

	updateID := uuid.NewString()

	updateEvent := history.NewPendingEvent(
		c.clock.Now(),
		history.EventType_WorkflowUpdateRequested,
		&history.WorkflowUpdateRequestedAttributes{
			Name:     name,
			UpdateID: updateID,
			Input:    input,
		},
	)

	if err := c.backend.SignalWorkflow(ctx, instance.InstanceID, updateEvent); err != nil {
		return *new(T), fmt.Errorf("requesting update: %w", err)
	}

	ticker := backoff.NewTicker(c.pollBackoff(timeout))
	defer ticker.Stop()

	for range ticker.C {
		h, err := c.backend.GetWorkflowInstanceHistory(ctx, instance, nil)
		if err != nil {
			return *new(T), fmt.Errorf("getting workflow history: %w", err)
		}

		for i := len(h) - 1; i >= 0; i-- {
			switch a := h[i].Attributes.(type) {
			case *history.WorkflowUpdateCompletedAttributes:
				if a.UpdateID != updateID {
					continue
				}

				if a.Error != nil {
					return *new(T), workflowerrors.ToError(a.Error)
				}

				var r T
				if err := c.backend.Options().Converter.From(a.Result, &r); err != nil {
					return *new(T), fmt.Errorf("converting update result: %w", err)
				}

				return r, nil

			case *history.WorkflowUpdateRejectedAttributes:
				if a.UpdateID != updateID {
					continue
				}

				if a.Error != nil {
					return *new(T), fmt.Errorf("%w: %s", ErrUpdateRejected, a.Error.Message)
				}

				return *new(T), ErrUpdateRejected
			}
		}
	}

	return *new(T), errors.New("update did not complete in specified timeout")
}
