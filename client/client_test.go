package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/memory"
	"github.com/durableio/rewind/client"
	"github.com/durableio/rewind/registry"
	"github.com/durableio/rewind/worker"
	"github.com/durableio/rewind/workflow"
)

func Test_Client_CreateWorkflowInstance_Duplicate(t *testing.T) {
	b := memory.NewMemoryBackend()
	defer b.Close()

	c := client.New(b)

	wf := func(ctx workflow.Context) error { return nil }

	instance, err := c.CreateWorkflowInstance(
		context.Background(), client.WorkflowInstanceOptions{InstanceID: "dup"}, wf)
	require.NoError(t, err)
	require.Equal(t, "dup", instance.InstanceID)
	require.NotEmpty(t, instance.ExecutionID)

	_, err = c.CreateWorkflowInstance(
		context.Background(), client.WorkflowInstanceOptions{InstanceID: "dup"}, wf)
	require.ErrorIs(t, err, backend.ErrInstanceAlreadyExists)
}

func Test_Client_CreateWorkflowInstance_ArgumentMismatch(t *testing.T) {
	b := memory.NewMemoryBackend()
	defer b.Close()

	c := client.New(b)

	wf := func(ctx workflow.Context, x int) error { return nil }

	_, err := c.CreateWorkflowInstance(
		context.Background(), client.WorkflowInstanceOptions{}, wf, "not-an-int")
	require.Error(t, err)
}

func Test_Client_SignalWorkflow_NotFound(t *testing.T) {
	b := memory.NewMemoryBackend()
	defer b.Close()

	c := client.New(b)

	err := c.SignalWorkflow(context.Background(), "unknown", "signal", nil)
	require.ErrorIs(t, err, backend.ErrInstanceNotFound)
}

func Test_Client_CancelWorkflowInstance(t *testing.T) {
	b := memory.NewMemoryBackend()
	defer b.Close()

	wf := func(ctx workflow.Context) error {
		return workflow.Sleep(ctx, time.Hour)
	}

	w := worker.New(b, testWorkerOptions())
	require.NoError(t, w.RegisterWorkflow(wf))
	startWorker(t, w)

	c := client.New(b)

	instance, err := c.CreateWorkflowInstance(context.Background(), client.WorkflowInstanceOptions{}, wf)
	require.NoError(t, err)

	require.NoError(t, c.CancelWorkflowInstance(context.Background(), instance))

	_, err = client.GetWorkflowResult[any](context.Background(), c, instance, time.Second*5)
	require.Error(t, err)
}

func Test_QueryWorkflow(t *testing.T) {
	b := memory.NewMemoryBackend()
	defer b.Close()

	wf := func(ctx workflow.Context) (string, error) {
		status := "waiting"

		if err := workflow.HandleQuery(ctx, "status", func(ctx workflow.Context) (string, error) {
			return status, nil
		}); err != nil {
			return "", err
		}

		workflow.NewSignalChannel[bool](ctx, "done").Receive(ctx)

		return status, nil
	}

	w := worker.New(b, testWorkerOptions())
	require.NoError(t, w.RegisterWorkflow(wf))
	startWorker(t, w)

	// Queries replay history on the client, so it needs its own registry
	r := registry.New()
	require.NoError(t, r.RegisterWorkflow(wf))

	c := client.New(b, client.WithRegistry(r))

	instance, err := c.CreateWorkflowInstance(context.Background(), client.WorkflowInstanceOptions{}, wf)
	require.NoError(t, err)

	// Wait until the first task has been processed and the handler exists
	require.Eventually(t, func() bool {
		status, err := client.QueryWorkflow[string](context.Background(), c, instance, "status", nil)
		return err == nil && status == "waiting"
	}, time.Second*5, time.Millisecond*50)

	// Without a registry queries are rejected
	_, err = client.QueryWorkflow[string](context.Background(), client.New(b), instance, "status", nil)
	require.ErrorContains(t, err, "no registry")
}

func Test_UpdateWorkflow_Rejected(t *testing.T) {
	b := memory.NewMemoryBackend()
	defer b.Close()

	wf := func(ctx workflow.Context) error {
		return workflow.Sleep(ctx, time.Hour)
	}

	w := worker.New(b, testWorkerOptions())
	require.NoError(t, w.RegisterWorkflow(wf))
	startWorker(t, w)

	c := client.New(b)

	instance, err := c.CreateWorkflowInstance(context.Background(), client.WorkflowInstanceOptions{}, wf)
	require.NoError(t, err)

	_, err = client.UpdateWorkflow[int](context.Background(), c, instance, "missing", 1, time.Second*5)
	require.ErrorIs(t, err, client.ErrUpdateRejected)
}

func testWorkerOptions() *worker.Options {
	options := worker.DefaultOptions
	options.WorkflowPollingInterval = time.Millisecond * 10
	options.ActivityPollingInterval = time.Millisecond * 10

	return &options
}

func startWorker(t *testing.T, w *worker.Worker) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, w.Start(ctx))

	t.Cleanup(func() {
		cancel()
		require.NoError(t, w.WaitForCompletion())
	})
}
