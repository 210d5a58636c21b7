package memory

import (
	"fmt"
	"reflect"
	"sync"

	"cutline/internal/backend"
)

type element struct {
	mu       sync.Mutex
	typeName string
	specs    []backend.ParamSpec
	values   map[string]any
}

func newElement(tmpl elementTemplate) *element {
	el := &element{
		typeName: tmpl.typeName,
		specs:    make([]backend.ParamSpec, len(tmpl.params)),
		values:   make(map[string]any, len(tmpl.params)),
	}
	copy(el.specs, tmpl.params)
	for _, spec := range el.specs {
		el.values[spec.Name] = spec.Default
	}
	return el
}

func (e *element) TypeName() string { return e.typeName }

func (e *element) Params() []backend.ParamSpec {
	out := make([]backend.ParamSpec, len(e.specs))
	copy(out, e.specs)
	return out
}

func (e *element) spec(name string) (backend.ParamSpec, bool) {
	for _, spec := range e.specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return backend.ParamSpec{}, false
}

func (e *element) Get(name string) (any, error) {
	spec, ok := e.spec(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", backend.ErrNoSuchParam, e.typeName, name)
	}
	if !spec.Readable {
		return nil, fmt.Errorf("%w: %s.%s is write-only", backend.ErrInvalidValue, e.typeName, name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values[name], nil
}

func (e *element) Set(name string, value any) error {
	spec, ok := e.spec(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", backend.ErrNoSuchParam, e.typeName, name)
	}
	if !spec.Writable || spec.Construct {
		return fmt.Errorf("%w: %s.%s", backend.ErrReadOnly, e.typeName, name)
	}
	converted, err := coerce(spec.Default, value)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", e.typeName, name, err)
	}
	e.mu.Lock()
	e.values[name] = converted
	e.mu.Unlock()
	return nil
}

// coerce converts value to the dynamic type of the parameter default.
// Numeric values convert between each other; anything else must match.
func coerce(def any, value any) (any, error) {
	if def == nil {
		return value, nil
	}
	want := reflect.TypeOf(def)
	got := reflect.ValueOf(value)
	if !got.IsValid() {
		return nil, fmt.Errorf("%w: nil for %s", backend.ErrInvalidValue, want)
	}
	if got.Type() == want {
		return value, nil
	}
	if isNumeric(got.Kind()) && isNumeric(want.Kind()) && got.CanConvert(want) {
		return got.Convert(want).Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s is not assignable to %s", backend.ErrInvalidValue, got.Type(), want)
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
