package rest

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var (
	// ErrPriorityTie is returned by Freeze when two resources claim the same
	// type with the same lowest order.
	ErrPriorityTie = errors.New("resources tie on priority")
	// ErrRegistryFrozen is returned by Register after Freeze.
	ErrRegistryFrozen = errors.New("registry is frozen")
	// ErrDuplicateResource is returned when a resource name is taken.
	ErrDuplicateResource = errors.New("duplicate resource name")
)

type registration struct {
	res   Resource
	order int
}

// Registry maps resource names and delegate types to resources. It is built
// at startup and only read once frozen, so lookups take no locks.
type Registry struct {
	frozen  bool
	entries []registration
	byName  map[string]Resource
	byType  map[reflect.Type]Resource
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Resource),
		byType: make(map[reflect.Type]Resource),
	}
}

// Register adds a resource. Lower order wins when several resources support
// the same type.
func (r *Registry) Register(res Resource, order int) error {
	if r.frozen {
		return fmt.Errorf("register %s: %w", res.Name(), ErrRegistryFrozen)
	}
	if _, dup := r.byName[res.Name()]; dup {
		return fmt.Errorf("register %s: %w", res.Name(), ErrDuplicateResource)
	}
	r.byName[res.Name()] = res
	r.entries = append(r.entries, registration{res: res, order: order})
	return nil
}

// Freeze resolves the handler of every supported type and closes the
// registry to further registrations.
func (r *Registry) Freeze() error {
	if r.frozen {
		return nil
	}
	best := make(map[reflect.Type][]registration)
	for _, e := range r.entries {
		t := e.res.SupportedType()
		cur := best[t]
		switch {
		case len(cur) == 0 || e.order < cur[0].order:
			best[t] = []registration{e}
		case e.order == cur[0].order:
			best[t] = append(cur, e)
		}
	}
	for t, regs := range best {
		if len(regs) > 1 {
			names := make([]string, len(regs))
			for i, e := range regs {
				names[i] = e.res.Name()
			}
			sort.Strings(names)
			return fmt.Errorf("%s: %s at order %d: %w", t, strings.Join(names, ", "), regs[0].order, ErrPriorityTie)
		}
		r.byType[t] = regs[0].res
	}
	r.frozen = true
	return nil
}

// ByName returns the resource routed under name.
func (r *Registry) ByName(name string) (Resource, error) {
	res, ok := r.byName[name]
	if !ok {
		return nil, UnknownResource(name)
	}
	return res, nil
}

// ForValue returns the resource that expands values of v's dynamic type.
func (r *Registry) ForValue(v interface{}) (Resource, bool) {
	if v == nil {
		return nil, false
	}
	return r.ForType(reflect.TypeOf(v))
}

// ForType returns the resource selected for t after Freeze.
func (r *Registry) ForType(t reflect.Type) (Resource, bool) {
	if !r.frozen {
		return nil, false
	}
	res, ok := r.byType[t]
	return res, ok
}

// Names returns the registered resource names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Resources returns the registered resources sorted by name.
func (r *Registry) Resources() []Resource {
	names := r.Names()
	out := make([]Resource, len(names))
	for i, n := range names {
		out[i] = r.byName[n]
	}
	return out
}

// MaxRefProperties bounds the size of every ref description.
const MaxRefProperties = 4

// CheckDescriptions verifies the nesting rules of a resource's descriptions:
// ref holds at most MaxRefProperties entries and nests only ref, default
// nests only ref, full nests only ref or default.
func CheckDescriptions(res Resource) error {
	allowed := map[Kind][]Kind{
		KindRef:     {KindRef},
		KindDefault: {KindRef},
		KindFull:    {KindRef, KindDefault},
	}
	for _, rep := range []Representation{Ref, Default, Full} {
		rules, ok := res.Describe(rep)
		if !ok {
			continue
		}
		if len(rules) == 0 {
			return fmt.Errorf("%s: %s description is empty", res.Name(), rep)
		}
		if rep.Kind() == KindRef && len(rules) > MaxRefProperties {
			return fmt.Errorf("%s: ref has %d properties, at most %d allowed", res.Name(), len(rules), MaxRefProperties)
		}
		seen := make(map[string]bool, len(rules))
		for _, rule := range rules {
			if seen[rule.Name] {
				return fmt.Errorf("%s: %s lists %s twice", res.Name(), rep, rule.Name)
			}
			seen[rule.Name] = true
			if rule.Rep == nil {
				continue
			}
			if !kindIn(rule.Rep.Kind(), allowed[rep.Kind()]) {
				return fmt.Errorf("%s: %s nests %s as %s", res.Name(), rep, rule.Name, rule.Rep)
			}
		}
	}
	return nil
}

func kindIn(k Kind, kinds []Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}
