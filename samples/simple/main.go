package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/durableio/rewind/backend/memory"
	"github.com/durableio/rewind/client"
	"github.com/durableio/rewind/worker"
	"github.com/durableio/rewind/workflow"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	b := memory.NewMemoryBackend()
	defer b.Close()

	w := worker.New(b, nil)

	if err := w.RegisterWorkflow(Workflow1); err != nil {
		log.Fatal(err)
	}

	if err := w.RegisterActivity(Add); err != nil {
		log.Fatal(err)
	}

	if err := w.Start(ctx); err != nil {
		log.Fatal(err)
	}

	c := client.New(b)

	instance, err := c.CreateWorkflowInstance(ctx, client.WorkflowInstanceOptions{}, Workflow1, 35, 12)
	if err != nil {
		log.Fatal(err)
	}

	result, err := client.GetWorkflowResult[int](ctx, c, instance, time.Second*30)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Workflow finished. Result:", result)

	cancel()

	if err := w.WaitForCompletion(); err != nil {
		log.Fatal(err)
	}
}

func Workflow1(ctx workflow.Context, a, b int) (int, error) {
	logger := workflow.Logger(ctx)
	logger.Info("Entering Workflow1", "replaying", workflow.Replaying(ctx))

	r, err := workflow.ExecuteActivity[int](ctx, workflow.DefaultActivityOptions, Add, a, b).Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting activity result: %w", err)
	}

	logger.Info("Activity finished", "result", r)

	return r, nil
}

func Add(ctx context.Context, a, b int) (int, error) {
	return a + b, nil
}
