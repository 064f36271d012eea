package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/durableio/rewind/internal/sync"
	"github.com/durableio/rewind/internal/workflowstate"
)

func workflowFn(ctx sync.Context) error {
	return nil
}

func Test_RegisterWorkflow_Function(t *testing.T) {
	r := New()

	require.NoError(t, r.RegisterWorkflow(workflowFn))

	def, err := r.GetWorkflow("workflowFn")
	require.NoError(t, err)
	require.False(t, def.IsStruct())
	require.NotNil(t, def.Fn)
}

func Test_RegisterWorkflow_CustomName(t *testing.T) {
	r := New()

	require.NoError(t, r.RegisterWorkflow(workflowFn, WithName("custom")))

	_, err := r.GetWorkflow("custom")
	require.NoError(t, err)

	_, err = r.GetWorkflow("workflowFn")
	require.Error(t, err)
}

func Test_RegisterWorkflow_Duplicate(t *testing.T) {
	r := New()

	require.NoError(t, r.RegisterWorkflow(workflowFn))

	err := r.RegisterWorkflow(workflowFn)
	var expected *ErrWorkflowAlreadyRegistered
	require.ErrorAs(t, err, &expected)
}

func Test_RegisterWorkflow_InvalidSignatures(t *testing.T) {
	r := New()

	var expected *ErrInvalidWorkflow

	require.ErrorAs(t, r.RegisterWorkflow(func() error { return nil }), &expected)
	require.ErrorAs(t, r.RegisterWorkflow(func(ctx context.Context) error { return nil }), &expected)
	require.ErrorAs(t, r.RegisterWorkflow(func(ctx sync.Context) {}), &expected)
	require.ErrorAs(t, r.RegisterWorkflow(func(ctx sync.Context) (int, int) { return 0, 0 }), &expected)
	require.ErrorAs(t, r.RegisterWorkflow(42), &expected)
}

type orderWorkflow struct {
	status string
}

func (w *orderWorkflow) Run(ctx sync.Context, orderID string) error {
	return nil
}

func (w *orderWorkflow) SignalShipped(ctx sync.Context, carrier string) {
	w.status = "shipped"
}

func (w *orderWorkflow) QueryStatus(ctx sync.Context) (string, error) {
	return w.status, nil
}

func (w *orderWorkflow) UpdateAddress(ctx sync.Context, address string) error {
	return nil
}

func (w *orderWorkflow) ValidateAddress(address string) error {
	return nil
}

func Test_RegisterWorkflow_Struct(t *testing.T) {
	r := New()

	require.True(t, Supports(&orderWorkflow{}))
	require.NoError(t, r.RegisterWorkflow(&orderWorkflow{}))

	def, err := r.GetWorkflow("orderWorkflow")
	require.NoError(t, err)
	require.True(t, def.IsStruct())
	require.Len(t, def.Handlers, 3)

	byName := map[string]HandlerMethod{}
	for _, h := range def.Handlers {
		byName[h.Name] = h
	}

	require.Equal(t, workflowstate.HandlerKind_Signal, byName["Shipped"].Kind)
	require.Equal(t, "SignalShipped", byName["Shipped"].Method)

	require.Equal(t, workflowstate.HandlerKind_Query, byName["Status"].Kind)

	require.Equal(t, workflowstate.HandlerKind_Update, byName["Address"].Kind)
	require.Equal(t, "ValidateAddress", byName["Address"].ValidatorMethod)
}

type noRunWorkflow struct{}

func (w *noRunWorkflow) Start(ctx sync.Context) error { return nil }

func Test_RegisterWorkflow_StructWithoutRun(t *testing.T) {
	r := New()

	require.False(t, Supports(&noRunWorkflow{}))

	var expected *ErrInvalidWorkflow
	require.ErrorAs(t, r.RegisterWorkflow(&noRunWorkflow{}), &expected)
}

type orphanValidatorWorkflow struct{}

func (w *orphanValidatorWorkflow) Run(ctx sync.Context) error { return nil }

func (w *orphanValidatorWorkflow) ValidateLimit(limit int) error { return nil }

func Test_RegisterWorkflow_OrphanValidator(t *testing.T) {
	r := New()

	err := r.RegisterWorkflow(&orphanValidatorWorkflow{})
	require.ErrorContains(t, err, "no matching UpdateLimit handler")
}

type badQueryWorkflow struct{}

func (w *badQueryWorkflow) Run(ctx sync.Context) error { return nil }

func (w *badQueryWorkflow) QueryState(ctx sync.Context) {}

func Test_RegisterWorkflow_InvalidHandlerSignature(t *testing.T) {
	r := New()

	var expected *ErrInvalidWorkflow
	require.ErrorAs(t, r.RegisterWorkflow(&badQueryWorkflow{}), &expected)
}

func activityFn(ctx context.Context, a, b int) (int, error) {
	return a + b, nil
}

func Test_RegisterActivity_Function(t *testing.T) {
	r := New()

	require.NoError(t, r.RegisterActivity(activityFn))

	a, err := r.GetActivity("activityFn")
	require.NoError(t, err)
	require.NotNil(t, a)
}

func Test_RegisterActivity_Invalid(t *testing.T) {
	r := New()

	var expected *ErrInvalidActivity
	require.ErrorAs(t, r.RegisterActivity(func(ctx context.Context) {}), &expected)
	require.ErrorAs(t, r.RegisterActivity(42), &expected)
}

type activities struct{}

func (a *activities) Charge(ctx context.Context, amount int) error { return nil }

func (a *activities) Refund(ctx context.Context, amount int) error { return nil }

func Test_RegisterActivity_Struct(t *testing.T) {
	r := New()

	require.NoError(t, r.RegisterActivity(&activities{}))

	_, err := r.GetActivity("Charge")
	require.NoError(t, err)

	_, err = r.GetActivity("Refund")
	require.NoError(t, err)

	_, err = r.GetActivity("Missing")
	require.Error(t, err)
}
