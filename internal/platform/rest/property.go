package rest

import (
	"context"
	"fmt"
)

// PropertyAccessor is generic get/set of a named property on a delegate.
type PropertyAccessor[T any] interface {
	// Has reports whether the property is declared.
	Has(name string) bool
	// Settable reports whether the property accepts writes.
	Settable(name string) bool
	Get(ctx context.Context, delegate T, name string) (interface{}, error)
	Set(ctx context.Context, delegate T, name string, value interface{}) error
	// Names lists declared properties in registration order.
	Names() []string
}

// Conversion coerces a wire value into the declared type of a property.
type Conversion[V any] func(ctx context.Context, raw interface{}) (V, error)

type property[T any] struct {
	get func(T) interface{}
	set func(context.Context, T, interface{}) error
}

// PropertyTable is an explicit capability table of accessor/mutator pairs
// for one delegate type, built once at registration.
type PropertyTable[T any] struct {
	typeName string
	order    []string
	props    map[string]property[T]
}

// NewPropertyTable returns an empty table; typeName is used in errors.
func NewPropertyTable[T any](typeName string) *PropertyTable[T] {
	return &PropertyTable[T]{typeName: typeName, props: make(map[string]property[T])}
}

func (t *PropertyTable[T]) add(name string, p property[T]) {
	if _, dup := t.props[name]; dup {
		panic(fmt.Sprintf("rest: property %s.%s registered twice", t.typeName, name))
	}
	t.order = append(t.order, name)
	t.props[name] = p
}

// Field registers a read/write property of declared type V. Every incoming
// value goes through conv, which also validates values that already are a V.
func Field[T, V any](t *PropertyTable[T], name string, get func(T) V, set func(T, V), conv Conversion[V]) {
	t.add(name, property[T]{
		get: func(d T) interface{} { return get(d) },
		set: func(ctx context.Context, d T, raw interface{}) error {
			v, err := conv(ctx, raw)
			if err != nil {
				return err
			}
			set(d, v)
			return nil
		},
	})
}

// ReadOnly registers a property that can be read but never set.
func ReadOnly[T, V any](t *PropertyTable[T], name string, get func(T) V) {
	t.add(name, property[T]{get: func(d T) interface{} { return get(d) }})
}

func (t *PropertyTable[T]) Has(name string) bool {
	_, ok := t.props[name]
	return ok
}

func (t *PropertyTable[T]) Settable(name string) bool {
	p, ok := t.props[name]
	return ok && p.set != nil
}

func (t *PropertyTable[T]) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *PropertyTable[T]) Get(_ context.Context, delegate T, name string) (interface{}, error) {
	p, ok := t.props[name]
	if !ok {
		return nil, UnknownProperty(t.typeName, name)
	}
	return p.get(delegate), nil
}

func (t *PropertyTable[T]) Set(ctx context.Context, delegate T, name string, value interface{}) error {
	p, ok := t.props[name]
	if !ok {
		return UnknownProperty(t.typeName, name)
	}
	if p.set == nil {
		return ConversionFailed(name, ErrReadOnly)
	}
	if err := p.set(ctx, delegate, value); err != nil {
		return ConversionFailed(name, err)
	}
	return nil
}

type projection[T, U any] struct {
	inner   PropertyAccessor[U]
	project func(T) U
}

// Project exposes the properties of an inner target U on the outer delegate T.
func Project[T, U any](inner PropertyAccessor[U], project func(T) U) PropertyAccessor[T] {
	return &projection[T, U]{inner: inner, project: project}
}

func (p *projection[T, U]) Has(name string) bool      { return p.inner.Has(name) }
func (p *projection[T, U]) Settable(name string) bool { return p.inner.Settable(name) }
func (p *projection[T, U]) Names() []string           { return p.inner.Names() }

func (p *projection[T, U]) Get(ctx context.Context, delegate T, name string) (interface{}, error) {
	return p.inner.Get(ctx, p.project(delegate), name)
}

func (p *projection[T, U]) Set(ctx context.Context, delegate T, name string, value interface{}) error {
	return p.inner.Set(ctx, p.project(delegate), name, value)
}

type chain[T any] struct {
	typeName string
	targets  []PropertyAccessor[T]
}

// Chain resolves each property on the first target that declares it, in the
// order given. It is how composite delegates route to their parts.
func Chain[T any](typeName string, targets ...PropertyAccessor[T]) PropertyAccessor[T] {
	return &chain[T]{typeName: typeName, targets: targets}
}

func (c *chain[T]) target(name string) PropertyAccessor[T] {
	for _, t := range c.targets {
		if t.Has(name) {
			return t
		}
	}
	return nil
}

func (c *chain[T]) Has(name string) bool { return c.target(name) != nil }

func (c *chain[T]) Settable(name string) bool {
	t := c.target(name)
	return t != nil && t.Settable(name)
}

func (c *chain[T]) Names() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.targets {
		for _, n := range t.Names() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func (c *chain[T]) Get(ctx context.Context, delegate T, name string) (interface{}, error) {
	t := c.target(name)
	if t == nil {
		return nil, UnknownProperty(c.typeName, name)
	}
	return t.Get(ctx, delegate, name)
}

func (c *chain[T]) Set(ctx context.Context, delegate T, name string, value interface{}) error {
	t := c.target(name)
	if t == nil {
		return UnknownProperty(c.typeName, name)
	}
	return t.Set(ctx, delegate, name, value)
}
