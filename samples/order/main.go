package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/memory"
	"github.com/durableio/rewind/backend/sqlitestore"
	"github.com/durableio/rewind/client"
	"github.com/durableio/rewind/worker"
	"github.com/durableio/rewind/workflow"
)

type config struct {
	Backend    string        `env:"BACKEND" envDefault:"memory"`
	SqlitePath string        `env:"SQLITE_PATH" envDefault:"order.sqlite"`
	Timeout    time.Duration `env:"ORDER_TIMEOUT" envDefault:"30s"`
}

type Order struct {
	ID     string
	Items  int
	Addr   string
	Status string
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(err)
	}

	var b backend.Backend
	switch cfg.Backend {
	case "sqlite":
		b = sqlitestore.NewSqliteBackend(cfg.SqlitePath)
	default:
		b = memory.NewMemoryBackend()
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())

	w := worker.New(b, nil)

	if err := w.RegisterWorkflow(OrderWorkflow); err != nil {
		log.Fatal(err)
	}

	if err := w.RegisterActivity(Ship); err != nil {
		log.Fatal(err)
	}

	if err := w.Start(ctx); err != nil {
		log.Fatal(err)
	}

	c := client.New(b)

	instance, err := c.CreateWorkflowInstance(ctx, client.WorkflowInstanceOptions{}, OrderWorkflow, Order{
		ID:    "order-1",
		Items: 3,
	})
	if err != nil {
		log.Fatal(err)
	}

	// Change the shipping address while the order is being prepared
	addr, err := client.UpdateWorkflow[string](ctx, c, instance, "set-address", "1 Main St", cfg.Timeout)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Shipping address set to:", addr)

	// Release the order for shipping
	if err := c.SignalWorkflow(ctx, instance.InstanceID, "release", nil); err != nil {
		log.Fatal(err)
	}

	status, err := client.GetWorkflowResult[string](ctx, c, instance, cfg.Timeout)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Order finished with status:", status)

	cancel()

	if err := w.WaitForCompletion(); err != nil {
		log.Fatal(err)
	}
}

func OrderWorkflow(ctx workflow.Context, order Order) (string, error) {
	logger := workflow.Logger(ctx)
	logger.Info("Processing order", "order_id", order.ID, "items", order.Items)

	if err := workflow.HandleUpdate(ctx, "set-address", func(ctx workflow.Context, addr string) (string, error) {
		order.Addr = addr
		return addr, nil
	}, workflow.WithUpdateValidator(func(ctx workflow.Context, addr string) error {
		if addr == "" {
			return fmt.Errorf("address must not be empty")
		}
		return nil
	})); err != nil {
		return "", err
	}

	if err := workflow.HandleQuery(ctx, "status", func(ctx workflow.Context) (string, error) {
		return order.Status, nil
	}); err != nil {
		return "", err
	}

	order.Status = "preparing"

	release := workflow.NewSignalChannel[any](ctx, "release")
	release.Receive(ctx)

	if order.Addr == "" {
		return "", fmt.Errorf("order released without a shipping address")
	}

	// Give the warehouse a moment before handing over to the carrier
	if err := workflow.Sleep(ctx, time.Millisecond*100); err != nil {
		return "", err
	}

	status, err := workflow.ExecuteActivity[string](ctx, workflow.DefaultActivityOptions, Ship, order).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("shipping order: %w", err)
	}

	order.Status = status

	return order.Status, nil
}

func Ship(ctx context.Context, order Order) (string, error) {
	return fmt.Sprintf("shipped %d items to %s", order.Items, order.Addr), nil
}
