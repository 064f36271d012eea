package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/durableio/rewind/internal/fn"
)

type Registry struct {
	sync.Mutex

	workflowMap map[string]*Definition
	activityMap map[string]interface{}
}

// New creates a new registry instance.
func New() *Registry {
	return &Registry{
		workflowMap: make(map[string]*Definition),
		activityMap: make(map[string]interface{}),
	}
}

type registerConfig struct {
	Name string
}

// RegisterWorkflow registers a workflow. Accepts either a workflow function
// taking a workflow context as its first parameter, or a pointer to a
// workflow struct with a Run method and optional Signal/Query/Update/Validate
// handler methods.
func (r *Registry) RegisterWorkflow(workflow interface{}, opts ...RegisterOption) error {
	cfg := registerOptions(opts).applyRegisterOptions(registerConfig{})

	wfType := reflect.TypeOf(workflow)
	if wfType == nil {
		return &ErrInvalidWorkflow{"workflow is nil"}
	}

	if Supports(workflow) {
		name := cfg.Name
		if name == "" {
			name = wfType.Elem().Name()
		}

		def, err := extractDefinition(name, workflow)
		if err != nil {
			return err
		}

		return r.addWorkflow(def)
	}

	if wfType.Kind() != reflect.Func {
		return &ErrInvalidWorkflow{"workflow is neither a function nor a struct with a Run method"}
	}

	name := cfg.Name
	if name == "" {
		name = fn.Name(workflow)
	}

	if err := checkWorkflowFn(wfType, 0); err != nil {
		return &ErrInvalidWorkflow{err.Error()}
	}

	return r.addWorkflow(&Definition{
		Name: name,
		Fn:   workflow,
	})
}

func (r *Registry) addWorkflow(def *Definition) error {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.workflowMap[def.Name]; ok {
		return &ErrWorkflowAlreadyRegistered{fmt.Sprintf("workflow with name %q already registered", def.Name)}
	}

	r.workflowMap[def.Name] = def

	return nil
}

func (r *Registry) RegisterActivity(activity interface{}, opts ...RegisterOption) error {
	cfg := registerOptions(opts).applyRegisterOptions(registerConfig{})

	t := reflect.TypeOf(activity)

	// Activities on a struct
	if t != nil && t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct {
		return r.registerActivitiesFromStruct(activity)
	}

	// Activity as function
	if err := checkActivity(t); err != nil {
		return err
	}

	name := cfg.Name
	if name == "" {
		name = fn.Name(activity)
	}

	r.Lock()
	defer r.Unlock()

	if _, ok := r.activityMap[name]; ok {
		return &ErrActivityAlreadyRegistered{fmt.Sprintf("activity with name %q already registered", name)}
	}
	r.activityMap[name] = activity

	return nil
}

func (r *Registry) registerActivitiesFromStruct(a interface{}) error {
	v := reflect.ValueOf(a)
	t := v.Type()

	r.Lock()
	defer r.Unlock()

	for i := 0; i < v.NumMethod(); i++ {
		mv := v.Method(i)
		mt := t.Method(i)

		// Ignore private methods
		if mt.PkgPath != "" {
			continue
		}

		if err := checkActivity(mv.Type()); err != nil {
			return err
		}

		name := mt.Name
		if _, ok := r.activityMap[name]; ok {
			return &ErrActivityAlreadyRegistered{fmt.Sprintf("activity with name %q already registered", name)}
		}

		r.activityMap[name] = mv.Interface()
	}

	return nil
}

func checkActivity(actType reflect.Type) error {
	if actType == nil || actType.Kind() != reflect.Func {
		return &ErrInvalidActivity{"activity not a func"}
	}

	if actType.NumOut() == 0 {
		return &ErrInvalidActivity{"activity must return error"}
	}

	errType := reflect.TypeOf((*error)(nil)).Elem()
	if !actType.Out(actType.NumOut() - 1).Implements(errType) {
		return &ErrInvalidActivity{"activity must return error as last return value"}
	}

	return nil
}

func (r *Registry) GetWorkflow(name string) (*Definition, error) {
	r.Lock()
	defer r.Unlock()

	if def, ok := r.workflowMap[name]; ok {
		return def, nil
	}

	return nil, errors.New("workflow not found")
}

func (r *Registry) GetActivity(name string) (interface{}, error) {
	r.Lock()
	defer r.Unlock()

	if activity, ok := r.activityMap[name]; ok {
		return activity, nil
	}

	return nil, fmt.Errorf("activity %s not found", name)
}
