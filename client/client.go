package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/metrics"
	"github.com/durableio/rewind/core"
	"github.com/durableio/rewind/internal/args"
	"github.com/durableio/rewind/internal/fn"
	"github.com/durableio/rewind/internal/metrickeys"
	"github.com/durableio/rewind/internal/tracing"
	"github.com/durableio/rewind/internal/workflowerrors"
	"github.com/durableio/rewind/registry"
	"github.com/durableio/rewind/workflow"
)

var ErrWorkflowCanceled = errors.New("workflow canceled")

type WorkflowInstanceOptions struct {
	// InstanceID for the new instance. A random id is generated when empty.
	InstanceID string
}

type Client struct {
	backend  backend.Backend
	clock    clock.Clock
	registry *registry.Registry
}

type Option func(*Client)

// WithRegistry provides the workflow registry used for replay-based queries.
// Queries fail without it.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

func New(backend backend.Backend, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		clock:   clock.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CreateWorkflowInstance creates a new workflow instance of the given workflow.
func (c *Client) CreateWorkflowInstance(ctx context.Context, options WorkflowInstanceOptions, wf workflow.Workflow, wfArgs ...any) (*workflow.Instance, error) {
	var workflowName string

	if name, ok := wf.(string); ok {
		workflowName = name
	} else {
		workflowName = fn.Name(wf)

		// Check arguments if actual workflow function given here
		if err := args.ParamsMatch(wf, wfArgs...); err != nil {
			return nil, err
		}
	}

	inputs, err := args.ArgsToInputs(c.backend.Options().Converter, wfArgs...)
	if err != nil {
		return nil, fmt.Errorf("converting arguments: %w", err)
	}

	instanceID := options.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	wfi := core.NewWorkflowInstance(instanceID, uuid.NewString())
	md := &workflow.Metadata{}

	ctx, span := c.backend.Tracer().Start(ctx, fmt.Sprintf("CreateWorkflowInstance: %s", workflowName), trace.WithAttributes(
		attribute.String(tracing.WorkflowInstanceID, wfi.InstanceID),
		attribute.String(tracing.WorkflowName, workflowName),
	))
	defer span.End()

	startedEvent := history.NewPendingEvent(
		c.clock.Now(),
		history.EventType_WorkflowExecutionStarted,
		&history.ExecutionStartedAttributes{
			Metadata: md,
			Name:     workflowName,
			Inputs:   inputs,
		})

	if err := c.backend.CreateWorkflowInstance(ctx, wfi, startedEvent); err != nil {
		return nil, fmt.Errorf("creating workflow instance: %w", err)
	}

	c.backend.Options().Logger.DebugContext(
		ctx, "created workflow instance",
		"instance_id", wfi.InstanceID,
		"execution_id", wfi.ExecutionID,
		"workflow", workflowName,
	)

	c.backend.Metrics().Counter(metrickeys.WorkflowInstanceCreated, metrics.Tags{}, 1)

	return wfi, nil
}

// CancelWorkflowInstance cancels a running workflow instance.
func (c *Client) CancelWorkflowInstance(ctx context.Context, instance *workflow.Instance) error {
	ctx, span := c.backend.Tracer().Start(ctx, "CancelWorkflowInstance", trace.WithAttributes(
		attribute.String(tracing.WorkflowInstanceID, instance.InstanceID),
	))
	defer span.End()

	cancellationEvent := history.NewWorkflowCancellationEvent(c.clock.Now())

	return c.backend.CancelWorkflowInstance(ctx, instance, cancellationEvent)
}

// SignalWorkflow delivers a signal to a running workflow instance.
func (c *Client) SignalWorkflow(ctx context.Context, instanceID string, name string, arg any) error {
	ctx, span := c.backend.Tracer().Start(ctx, "SignalWorkflow", trace.WithAttributes(
		attribute.String(tracing.WorkflowInstanceID, instanceID),
		attribute.String(tracing.SignalName, name),
	))
	defer span.End()

	input, err := c.backend.Options().Converter.To(arg)
	if err != nil {
		return fmt.Errorf("converting arguments: %w", err)
	}

	signalEvent := history.NewPendingEvent(
		c.clock.Now(),
		history.EventType_SignalReceived,
		&history.SignalReceivedAttributes{
			Name: name,
			Arg:  input,
		},
	)

	if err := c.backend.SignalWorkflow(ctx, instanceID, signalEvent); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// WaitForWorkflowInstance waits for the given workflow instance to finish or until the given timeout has expired.
func (c *Client) WaitForWorkflowInstance(ctx context.Context, instance *workflow.Instance, timeout time.Duration) error {
	ctx, span := c.backend.Tracer().Start(ctx, "WaitForWorkflowInstance", trace.WithAttributes(
		attribute.String(tracing.WorkflowInstanceID, instance.InstanceID),
	))
	defer span.End()

	ticker := backoff.NewTicker(c.pollBackoff(timeout))
	defer ticker.Stop()

	for range ticker.C {
		s, err := c.backend.GetWorkflowInstanceState(ctx, instance)
		if err != nil {
			return fmt.Errorf("getting workflow state: %w", err)
		}

		if s == core.WorkflowInstanceStateFinished || s == core.WorkflowInstanceStateContinuedAsNew {
			return nil
		}
	}

	return errors.New("workflow did not finish in specified timeout")
}

// GetWorkflowResult waits for the workflow instance to finish and returns its
// result, or the error it failed with.
func GetWorkflowResult[T any](ctx context.Context, c *Client, instance *workflow.Instance, timeout time.Duration) (T, error) {
	b := c.backend

	ctx, span := b.Tracer().Start(ctx, "GetWorkflowResult", trace.WithAttributes(
		attribute.String(tracing.WorkflowInstanceID, instance.InstanceID),
	))
	defer span.End()

	if err := c.WaitForWorkflowInstance(ctx, instance, timeout); err != nil {
		return *new(T), fmt.Errorf("workflow did not finish in time: %w", err)
	}

	h, err := b.GetWorkflowInstanceHistory(ctx, instance, nil)
	if err != nil {
		return *new(T), fmt.Errorf("getting workflow history: %w", err)
	}

	// Iterate over history backwards, the result event is at or near the end
	for i := len(h) - 1; i >= 0; i-- {
		event := h[i]
		switch event.Type {
		case history.EventType_WorkflowExecutionFinished:
			a := event.Attributes.(*history.ExecutionCompletedAttributes)
			if a.Error != nil {
				return *new(T), workflowerrors.ToError(a.Error)
			}

			var r T
			if err := b.Options().Converter.From(a.Result, &r); err != nil {
				return *new(T), fmt.Errorf("converting result: %w", err)
			}

			return r, nil

		case history.EventType_WorkflowExecutionContinuedAsNew:
			a := event.Attributes.(*history.ExecutionContinuedAsNewAttributes)

			var r T
			if err := b.Options().Converter.From(a.Result, &r); err != nil {
				return *new(T), fmt.Errorf("converting result: %w", err)
			}

			return r, nil

		case history.EventType_WorkflowExecutionCanceled:
			return *new(T), ErrWorkflowCanceled
		}
	}

	return *new(T), errors.New("workflow finished, but could not find result event")
}

func (c *Client) pollBackoff(timeout time.Duration) *backoff.ExponentialBackOff {
	if timeout == 0 {
		timeout = time.Second * 20
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond * 1,
		MaxInterval:         time.Second * 1,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      timeout,
		Stop:                backoff.Stop,
		Clock:               c.clock,
	}
	b.Reset()

	return b
}
