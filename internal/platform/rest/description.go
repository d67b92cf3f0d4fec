package rest

import (
	"context"
)

// RuleKind tells how a described property obtains its value.
type RuleKind int

const (
	// RuleSimple reads the property through the resource's accessor.
	RuleSimple RuleKind = iota
	// RuleMethod computes a read-only value from the delegate.
	RuleMethod
	// RuleNested reads the property and expands it with a nested representation.
	RuleNested
)

func (k RuleKind) String() string {
	switch k {
	case RuleMethod:
		return "method"
	case RuleNested:
		return "nested"
	}
	return "simple"
}

// MethodFunc derives a property value from a delegate.
type MethodFunc[T any] func(ctx context.Context, delegate T) (interface{}, error)

// Rule is the resolution rule for one wire property.
type Rule[T any] struct {
	Name   string
	Method MethodFunc[T]
	// Rep is the nested representation applied to the value, nil for none.
	Rep *Representation
}

// Kind classifies the rule. A method rule stays a method rule even when a
// nested representation is attached to its result.
func (r Rule[T]) Kind() RuleKind {
	switch {
	case r.Method != nil:
		return RuleMethod
	case r.Rep != nil:
		return RuleNested
	}
	return RuleSimple
}

// Description is the ordered set of rules one representation exposes.
type Description[T any] struct {
	rules []Rule[T]
	index map[string]int
}

// NewDescription returns an empty description.
func NewDescription[T any]() *Description[T] {
	return &Description[T]{index: make(map[string]int)}
}

func (d *Description[T]) put(r Rule[T]) *Description[T] {
	if i, ok := d.index[r.Name]; ok {
		d.rules[i] = r
		return d
	}
	d.index[r.Name] = len(d.rules)
	d.rules = append(d.rules, r)
	return d
}

// AddProperty adds a simple property.
func (d *Description[T]) AddProperty(names ...string) *Description[T] {
	for _, n := range names {
		d.put(Rule[T]{Name: n})
	}
	return d
}

// AddNested adds a property expanded with rep.
func (d *Description[T]) AddNested(name string, rep Representation) *Description[T] {
	return d.put(Rule[T]{Name: name, Rep: &rep})
}

// AddMethod adds a read-only derived property.
func (d *Description[T]) AddMethod(name string, fn MethodFunc[T]) *Description[T] {
	return d.put(Rule[T]{Name: name, Method: fn})
}

// Lookup returns the rule registered under name.
func (d *Description[T]) Lookup(name string) (Rule[T], bool) {
	if d == nil {
		return Rule[T]{}, false
	}
	i, ok := d.index[name]
	if !ok {
		return Rule[T]{}, false
	}
	return d.rules[i], true
}

// Properties returns the rules in declaration order.
func (d *Description[T]) Properties() []Rule[T] {
	if d == nil {
		return nil
	}
	out := make([]Rule[T], len(d.rules))
	copy(out, d.rules)
	return out
}

// Names returns the wire names in declaration order.
func (d *Description[T]) Names() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.rules))
	for i, r := range d.rules {
		out[i] = r.Name
	}
	return out
}

// Len returns the number of rules.
func (d *Description[T]) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rules)
}

// customDescription resolves the items of a custom representation against
// the given descriptions in order, keeping the first rule found. A listed
// nested representation overrides the rule's own.
func customDescription[T any](resource string, rep Representation, sources ...*Description[T]) (*Description[T], error) {
	out := NewDescription[T]()
	for _, item := range rep.Properties() {
		var (
			rule  Rule[T]
			found bool
		)
		for _, src := range sources {
			if rule, found = src.Lookup(item.Name); found {
				break
			}
		}
		if !found {
			return nil, UnknownProperty(resource, item.Name).With("representation", rep.String())
		}
		if item.Rep != nil {
			nested := *item.Rep
			rule.Rep = &nested
		}
		out.put(rule)
	}
	return out, nil
}

// RuleInfo is the type-erased shape of a rule, used for diagnostics and for
// checking description design rules across resources.
type RuleInfo struct {
	Name string
	Kind RuleKind
	Rep  *Representation
}

func describe[T any](d *Description[T]) []RuleInfo {
	out := make([]RuleInfo, 0, d.Len())
	for _, r := range d.Properties() {
		out = append(out, RuleInfo{Name: r.Name, Kind: r.Kind(), Rep: r.Rep})
	}
	return out
}
