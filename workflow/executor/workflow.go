package executor

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/internal/args"
	"github.com/durableio/rewind/internal/continueasnew"
	"github.com/durableio/rewind/internal/contextvalue"
	"github.com/durableio/rewind/internal/sync"
	"github.com/durableio/rewind/internal/workflowerrors"
)

// workflow drives the root coroutine of a workflow function and the handler
// coroutines spawned next to it. All of them share one FIFO scheduler.
type workflow struct {
	s      *sync.Scheduler
	fn     reflect.Value
	result payload.Payload
	err    error
}

func newWorkflow(workflowFn reflect.Value, deadlockBudget time.Duration) *workflow {
	s := sync.NewScheduler(sync.WithDeadlockBudget(deadlockBudget))

	return &workflow{
		s:  s,
		fn: workflowFn,
	}
}

func (w *workflow) Execute(ctx sync.Context, inputs []payload.Payload) error {
	w.s.NewCoroutine(ctx, func(ctx sync.Context) error {
		converter := contextvalue.Converter(ctx)
		args, addContext, err := args.InputsToArgs(converter, w.fn, inputs)
		if err != nil {
			return fmt.Errorf("converting workflow inputs: %w", err)
		}

		if !addContext {
			return errors.New("workflow must accept context as first argument")
		}

		args[0] = reflect.ValueOf(ctx)

		// Handle panics in workflow code. ContinueAsNew leaves the workflow
		// function via panic, so its sentinel passes through as the workflow
		// error.
		defer func() {
			if r := recover(); r != nil {
				if canErr, ok := r.(*continueasnew.Error); ok {
					w.err = canErr
					return
				}

				w.err = workflowerrors.NewPanicError(fmt.Sprintf("panic in workflow: %v", r))
			}
		}()

		// Call workflow function
		r := w.fn.Call(args)

		// Process result
		if len(r) < 1 || len(r) > 2 {
			return errors.New("workflow has to return either (error) or (result, error)")
		}

		var result payload.Payload

		if len(r) > 1 {
			var err error
			result, err = converter.To(r[0].Interface())
			if err != nil {
				return fmt.Errorf("converting workflow result: %w", err)
			}
		} else {
			result, err = converter.To(nil)
			if err != nil {
				return fmt.Errorf("converting workflow result: %w", err)
			}
		}

		w.result = result

		errResult := r[len(r)-1]
		if !errResult.IsNil() {
			errInterface, ok := errResult.Interface().(error)
			if !ok {
				return fmt.Errorf("workflow error result does not satisfy error interface (%T): %v", errResult, errResult)
			}

			w.err = errInterface
		}

		return nil
	})

	return w.s.Execute()
}

// NewCoroutine spawns an additional coroutine, for example a signal or update
// handler, on the workflow's scheduler.
func (w *workflow) NewCoroutine(ctx sync.Context, fn func(sync.Context) error) {
	w.s.NewCoroutine(ctx, fn)
}

func (w *workflow) Continue() error {
	return w.s.Execute()
}

// Completed returns whether the root coroutine and all handler coroutines
// have finished.
func (w *workflow) Completed() bool {
	return w.s.RunningCoroutines() == 0
}

// Result returns the return value of a finished workflow as a payload
func (w *workflow) Result() payload.Payload {
	return w.result
}

// Error returns the error of a finished workflow, can be nil
func (w *workflow) Error() error {
	return w.err
}

func (w *workflow) Close() {
	// End coroutine execution to prevent goroutine leaks
	w.s.Exit()
}
