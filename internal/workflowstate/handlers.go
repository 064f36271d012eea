package workflowstate

import (
	"fmt"
	"reflect"

	"github.com/durableio/rewind/internal/args"
)

type HandlerKind int

const (
	HandlerKind_Signal HandlerKind = iota
	HandlerKind_Query
	HandlerKind_Update
)

func (k HandlerKind) String() string {
	switch k {
	case HandlerKind_Signal:
		return "signal"
	case HandlerKind_Query:
		return "query"
	case HandlerKind_Update:
		return "update"
	default:
		panic("unknown handler kind")
	}
}

type Handler struct {
	Kind HandlerKind
	Name string

	Fn reflect.Value

	// Validator is only set for update handlers. An invalid Value means the
	// update is accepted unconditionally.
	Validator reflect.Value
}

// Handlers is the handler table of a workflow instance. It is seeded from the
// workflow definition when execution starts and can grow while the workflow
// runs. The version is bumped on every registration; dispatch uses it to
// notice that buffered messages may have found a handler.
type Handlers struct {
	version  int64
	handlers map[HandlerKind]map[string]*Handler
}

func NewHandlers() *Handlers {
	return &Handlers{
		handlers: map[HandlerKind]map[string]*Handler{
			HandlerKind_Signal: {},
			HandlerKind_Query:  {},
			HandlerKind_Update: {},
		},
	}
}

func (h *Handlers) Version() int64 {
	return h.version
}

func (h *Handlers) Handler(kind HandlerKind, name string) (*Handler, bool) {
	handler, ok := h.handlers[kind][name]
	return handler, ok
}

func (h *Handlers) Add(kind HandlerKind, name string, fn interface{}) error {
	return h.add(&Handler{
		Kind: kind,
		Name: name,
		Fn:   reflect.ValueOf(fn),
	})
}

func (h *Handlers) AddUpdate(name string, fn interface{}, validator interface{}) error {
	handler := &Handler{
		Kind: HandlerKind_Update,
		Name: name,
		Fn:   reflect.ValueOf(fn),
	}

	if validator != nil {
		v := reflect.ValueOf(validator)
		if err := CheckValidatorType(v.Type(), handler.Fn.Type()); err != nil {
			return fmt.Errorf("update handler %q: %w", name, err)
		}

		handler.Validator = v
	}

	return h.add(handler)
}

func (h *Handlers) add(handler *Handler) error {
	if handler.Name == "" {
		return fmt.Errorf("%s handler requires a name", handler.Kind)
	}

	if !handler.Fn.IsValid() || handler.Fn.Kind() != reflect.Func {
		return fmt.Errorf("%s handler %q: handler is not a function", handler.Kind, handler.Name)
	}

	if err := CheckHandlerType(handler.Kind, handler.Fn.Type()); err != nil {
		return fmt.Errorf("%s handler %q: %w", handler.Kind, handler.Name, err)
	}

	if _, ok := h.handlers[handler.Kind][handler.Name]; ok {
		return fmt.Errorf("%s handler %q already registered", handler.Kind, handler.Name)
	}

	h.handlers[handler.Kind][handler.Name] = handler
	h.version++

	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// CheckHandlerType validates the return values of a handler function type.
// Works for plain functions and for methods; input parameters are not
// inspected beyond an optional leading context.
func CheckHandlerType(kind HandlerKind, fnType reflect.Type) error {
	switch kind {
	case HandlerKind_Signal:
		// Optionally returns an error
		switch fnType.NumOut() {
		case 0:
		case 1:
			if !fnType.Out(0).Implements(errorType) {
				return fmt.Errorf("single return value must be an error")
			}
		default:
			return fmt.Errorf("must return nothing or an error")
		}

	case HandlerKind_Query:
		switch fnType.NumOut() {
		case 1:
			if fnType.Out(0).Implements(errorType) {
				return fmt.Errorf("must return a value")
			}
		case 2:
			if !fnType.Out(1).Implements(errorType) {
				return fmt.Errorf("second return value must be an error")
			}
		default:
			return fmt.Errorf("must return a value and optionally an error")
		}

	case HandlerKind_Update:
		switch fnType.NumOut() {
		case 1:
			if !fnType.Out(0).Implements(errorType) {
				return fmt.Errorf("single return value must be an error")
			}
		case 2:
			if !fnType.Out(1).Implements(errorType) {
				return fmt.Errorf("second return value must be an error")
			}
		default:
			return fmt.Errorf("must return an error and optionally a value")
		}
	}

	return nil
}

// CheckValidatorType ensures the validator accepts the same inputs as the
// handler (ignoring context and receiver parameters) and returns exactly an
// error.
func CheckValidatorType(validatorType, fnType reflect.Type) error {
	if validatorType.Kind() != reflect.Func {
		return fmt.Errorf("validator is not a function")
	}

	if validatorType.NumOut() != 1 || !validatorType.Out(0).Implements(errorType) {
		return fmt.Errorf("validator must return exactly an error")
	}

	if handlerInputs(validatorType) != handlerInputs(fnType) {
		return fmt.Errorf("validator inputs must match handler inputs")
	}

	return nil
}

func handlerInputs(fnType reflect.Type) int {
	n := fnType.NumIn()
	if n > 0 && args.IsOwnContext(fnType.In(0)) {
		n--
	}

	return n
}
