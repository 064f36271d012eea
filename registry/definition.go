package registry

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/durableio/rewind/internal/args"
	"github.com/durableio/rewind/internal/workflowstate"
)

// RunMethodName is the entry point method a workflow struct has to implement.
const RunMethodName = "Run"

// Handler method prefixes. A method `SignalOrderShipped` on a workflow struct
// registers a signal handler named "OrderShipped".
const (
	signalPrefix    = "Signal"
	queryPrefix     = "Query"
	updatePrefix    = "Update"
	validatorPrefix = "Validate"
)

// Definition describes a registered workflow. For function-based workflows
// only Fn is set; for struct-based workflows Type and the extracted handler
// methods are set and Fn is nil.
type Definition struct {
	Name string

	// Fn is the workflow function for function-based workflows.
	Fn interface{}

	// Type is the pointer-to-struct type for struct-based workflows.
	Type reflect.Type

	// Handlers are the handler methods declared on the workflow struct.
	Handlers []HandlerMethod
}

// HandlerMethod is a handler declared as a method on a workflow struct. The
// executor binds the method to a fresh struct instance when execution starts.
type HandlerMethod struct {
	Kind workflowstate.HandlerKind

	// Name of the signal/query/update the handler serves.
	Name string

	// Method name on the struct.
	Method string

	// ValidatorMethod is the paired Validate method for updates, if any.
	ValidatorMethod string
}

// IsStruct reports whether this definition is a struct-based workflow.
func (d *Definition) IsStruct() bool {
	return d.Type != nil
}

// Supports reports whether the given value can be registered as a
// struct-based workflow, without validating its handler methods.
func Supports(workflow interface{}) bool {
	t := reflect.TypeOf(workflow)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return false
	}

	_, ok := t.MethodByName(RunMethodName)
	return ok
}

// extractDefinition validates a workflow struct type and extracts its entry
// point and handler methods.
func extractDefinition(name string, workflow interface{}) (*Definition, error) {
	t := reflect.TypeOf(workflow)

	run, ok := t.MethodByName(RunMethodName)
	if !ok {
		return nil, &ErrInvalidWorkflow{fmt.Sprintf("workflow struct %s has no %s method", t.Elem().Name(), RunMethodName)}
	}

	if err := checkWorkflowFn(run.Type, 1); err != nil {
		return nil, &ErrInvalidWorkflow{fmt.Sprintf("%s method: %v", RunMethodName, err)}
	}

	def := &Definition{
		Name: name,
		Type: t,
	}

	validators := map[string]string{}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)

		if m.Name == RunMethodName {
			continue
		}

		switch {
		case strings.HasPrefix(m.Name, validatorPrefix):
			handlerName := strings.TrimPrefix(m.Name, validatorPrefix)
			if handlerName == "" {
				return nil, &ErrInvalidWorkflow{fmt.Sprintf("method %s: validator requires a name suffix", m.Name)}
			}

			if err := checkValidatorMethod(m.Type); err != nil {
				return nil, &ErrInvalidWorkflow{fmt.Sprintf("method %s: %v", m.Name, err)}
			}

			validators[handlerName] = m.Name

		case strings.HasPrefix(m.Name, signalPrefix):
			if err := addHandlerMethod(def, workflowstate.HandlerKind_Signal, signalPrefix, m); err != nil {
				return nil, err
			}

		case strings.HasPrefix(m.Name, queryPrefix):
			if err := addHandlerMethod(def, workflowstate.HandlerKind_Query, queryPrefix, m); err != nil {
				return nil, err
			}

		case strings.HasPrefix(m.Name, updatePrefix):
			if err := addHandlerMethod(def, workflowstate.HandlerKind_Update, updatePrefix, m); err != nil {
				return nil, err
			}
		}
	}

	// Pair validators with their update handlers
	for handlerName, methodName := range validators {
		paired := false
		for i := range def.Handlers {
			h := &def.Handlers[i]
			if h.Kind == workflowstate.HandlerKind_Update && h.Name == handlerName {
				h.ValidatorMethod = methodName
				paired = true
				break
			}
		}

		if !paired {
			return nil, &ErrInvalidWorkflow{fmt.Sprintf("method %s has no matching %s%s handler", methodName, updatePrefix, handlerName)}
		}
	}

	return def, nil
}

func addHandlerMethod(def *Definition, kind workflowstate.HandlerKind, prefix string, m reflect.Method) error {
	handlerName := strings.TrimPrefix(m.Name, prefix)
	if handlerName == "" {
		return &ErrInvalidWorkflow{fmt.Sprintf("method %s: %s handler requires a name suffix", m.Name, kind)}
	}

	if err := workflowstate.CheckHandlerType(kind, m.Type); err != nil {
		return &ErrInvalidWorkflow{fmt.Sprintf("method %s: %v", m.Name, err)}
	}

	def.Handlers = append(def.Handlers, HandlerMethod{
		Kind:   kind,
		Name:   handlerName,
		Method: m.Name,
	})

	return nil
}

// checkWorkflowFn validates a workflow entry point. skip is the number of
// leading parameters to ignore (the receiver for methods).
func checkWorkflowFn(fnType reflect.Type, skip int) error {
	if fnType.NumIn() <= skip {
		return fmt.Errorf("workflow does not accept context parameter")
	}

	if !args.IsOwnContext(fnType.In(skip)) {
		return fmt.Errorf("workflow does not accept context as first parameter")
	}

	if fnType.NumOut() == 0 {
		return fmt.Errorf("workflow must return error")
	}

	if fnType.NumOut() > 2 {
		return fmt.Errorf("workflow must return at most two values")
	}

	errType := reflect.TypeOf((*error)(nil)).Elem()
	if (fnType.NumOut() == 1 && !fnType.Out(0).Implements(errType)) ||
		(fnType.NumOut() == 2 && !fnType.Out(1).Implements(errType)) {
		return fmt.Errorf("workflow must return error as last return value")
	}

	return nil
}

// checkValidatorMethod validates a Validate method. Input pairing with the
// update handler is checked once both methods are known.
func checkValidatorMethod(fnType reflect.Type) error {
	errType := reflect.TypeOf((*error)(nil)).Elem()

	if fnType.NumOut() != 1 || !fnType.Out(0).Implements(errType) {
		return fmt.Errorf("validator must return exactly an error")
	}

	return nil
}
