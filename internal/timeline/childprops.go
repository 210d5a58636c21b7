package timeline

import (
	"reflect"
	"strings"

	"cutline/internal/backend"
)

// ChildProperty is a parameter exposed by one of a node's child elements.
type ChildProperty struct {
	Element backend.Element
	Spec    backend.ParamSpec
}

// Key is the qualified "Type::name" form of the property.
func (p ChildProperty) Key() string {
	return p.Element.TypeName() + "::" + p.Spec.Name
}

func (p ChildProperty) copyable() bool {
	return p.Spec.Readable && p.Spec.Writable && !p.Spec.Construct
}

func collectChildProperties(node backend.Node) []ChildProperty {
	var props []ChildProperty
	for _, element := range node.Elements() {
		for _, spec := range element.Params() {
			props = append(props, ChildProperty{Element: element, Spec: spec})
		}
	}
	return props
}

// lookupChild resolves "name" or "Type::name". A qualifier matches either
// the element type or the type that declares the parameter. Without a
// qualifier the first element exposing the name wins.
func lookupChild(props []ChildProperty, name string) (ChildProperty, error) {
	qualifier, prop := "", name
	if before, after, found := strings.Cut(name, "::"); found {
		qualifier, prop = before, after
	}
	for _, candidate := range props {
		if candidate.Spec.Name != prop {
			continue
		}
		if qualifier == "" || candidate.Element.TypeName() == qualifier || candidate.Spec.Owner == qualifier {
			return candidate, nil
		}
	}
	return ChildProperty{}, Wrap(ErrNoSuchChildProperty, "track object", "lookup child", name, nil)
}

// captureChildValues snapshots copyable child properties. Unless all is set,
// only values that differ from the parameter default are kept.
func captureChildValues(props []ChildProperty, all bool) map[string]any {
	out := map[string]any{}
	for _, prop := range props {
		if !prop.copyable() {
			continue
		}
		value, err := prop.Element.Get(prop.Spec.Name)
		if err != nil {
			continue
		}
		if !all && reflect.DeepEqual(value, prop.Spec.Default) {
			continue
		}
		out[prop.Key()] = value
	}
	return out
}

func (o *TrackObject) boundProps(operation string) ([]ChildProperty, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch s := o.state.(type) {
	case *boundState:
		return s.props, nil
	case *destroyedState:
		return nil, Wrap(ErrDestroyed, "track object", operation, o.name, nil)
	default:
		return nil, Wrap(ErrUnbound, "track object", operation, o.name, nil)
	}
}

// LookupChild finds the element and parameter behind name, which may be
// qualified as "Type::name" when several children expose the same name.
func (o *TrackObject) LookupChild(name string) (ChildProperty, error) {
	props, err := o.boundProps("lookup child")
	if err != nil {
		return ChildProperty{}, err
	}
	return lookupChild(props, name)
}

// ChildProperty reads a child element parameter.
func (o *TrackObject) ChildProperty(name string) (any, error) {
	prop, err := o.LookupChild(name)
	if err != nil {
		return nil, err
	}
	value, err := prop.Element.Get(prop.Spec.Name)
	if err != nil {
		return nil, Wrap(ErrNoSuchChildProperty, "track object", "get child property", name, err)
	}
	return value, nil
}

// SetChildProperty writes a child element parameter and notifies observers
// with the qualified key as property name.
func (o *TrackObject) SetChildProperty(name string, value any) error {
	prop, err := o.LookupChild(name)
	if err != nil {
		return err
	}
	if err := prop.Element.Set(prop.Spec.Name, value); err != nil {
		return Wrap(ErrConstraint, "track object", "set child property", name, err)
	}
	o.Notify(o, prop.Key(), value)
	return nil
}

// ListChildProperties returns every child parameter of the bound node.
func (o *TrackObject) ListChildProperties() ([]ChildProperty, error) {
	props, err := o.boundProps("list child properties")
	if err != nil {
		return nil, err
	}
	out := make([]ChildProperty, len(props))
	copy(out, props)
	return out, nil
}
