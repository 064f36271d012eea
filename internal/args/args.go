package args

import (
	"context"
	"fmt"
	"reflect"

	"github.com/durableio/rewind/backend/converter"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/internal/sync"
)

func ArgsToInputs(c converter.Converter, args ...interface{}) ([]payload.Payload, error) {
	inputs := make([]payload.Payload, 0)

	for _, arg := range args {
		input, err := c.To(arg)
		if err != nil {
			return nil, fmt.Errorf("converting args to inputs: %w", err)
		}
		inputs = append(inputs, input)
	}

	return inputs, nil
}

// InputsToArgs converts the given inputs to arguments for the given function. If the
// function accepts a (workflow or plain) context as its first argument, the first
// returned argument is left unset and addContext is true.
func InputsToArgs(c converter.Converter, fn reflect.Value, inputs []payload.Payload) (args []reflect.Value, addContext bool, err error) {
	fnT := fn.Type()

	numArgs := fnT.NumIn()
	args = make([]reflect.Value, numArgs)

	input := 0
	for i := 0; i < numArgs; i++ {
		argT := fnT.In(i)

		// Insert context if requested
		if i == 0 && (IsOwnContext(argT) || isContext(argT)) {
			addContext = true
			continue
		}

		if input >= len(inputs) {
			return nil, false, fmt.Errorf("mismatched argument count: expected %d, got %d", numArgs-1, len(inputs))
		}

		arg := reflect.New(argT).Interface()
		err := c.From(inputs[input], arg)
		if err != nil {
			return nil, false, fmt.Errorf("converting inputs: %w", err)
		}

		args[i] = reflect.ValueOf(arg).Elem()

		input++
	}

	if input != len(inputs) {
		return nil, false, fmt.Errorf("mismatched argument count: inputs left over")
	}

	return args, addContext, nil
}

// ParamsMatch checks that the given arguments can be passed to the given function,
// ignoring a leading context parameter.
func ParamsMatch(fn interface{}, args ...interface{}) error {
	fnT := reflect.TypeOf(fn)
	if fnT.Kind() != reflect.Func {
		return fmt.Errorf("not a function")
	}

	numIn := fnT.NumIn()
	skip := 0
	if numIn > 0 && (IsOwnContext(fnT.In(0)) || isContext(fnT.In(0))) {
		skip = 1
	}

	if numIn-skip != len(args) {
		return fmt.Errorf("mismatched argument count: expected %d, got %d", numIn-skip, len(args))
	}

	return nil
}

func IsOwnContext(inType reflect.Type) bool {
	contextElem := reflect.TypeOf((*sync.Context)(nil)).Elem()
	return inType != nil && inType.Implements(contextElem)
}

func isContext(inType reflect.Type) bool {
	contextElem := reflect.TypeOf((*context.Context)(nil)).Elem()
	return inType != nil && inType.Implements(contextElem)
}
