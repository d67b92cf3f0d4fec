package rest

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/ehr/restws/internal/domain"
	"github.com/ehr/restws/pkg/pagination"
)

// Handler is what a domain resource supplies to the generic CRUD machinery.
// Handlers return domain errors; the CrudResource maps them onto the REST
// taxonomy. Operations a handler does not offer return ErrOperationNotSupported.
type Handler[T any] interface {
	// Name is the resource name used in URLs.
	Name() string
	NewDelegate() T
	GetByUniqueID(ctx context.Context, uuid string) (T, error)
	Save(ctx context.Context, delegate T) (T, error)
	Delete(ctx context.Context, delegate T, reason string) error
	Purge(ctx context.Context, delegate T) error
	Search(ctx context.Context, query string) ([]T, error)
	// Description returns the rules for ref, default or full, or nil when the
	// resource does not support the representation.
	Description(rep Representation) *Description[T]
	Properties() PropertyAccessor[T]
	DisplayString(delegate T) string
}

// Voidable is implemented by delegates with soft-delete state.
type Voidable interface {
	IsVoided() bool
}

// Remover is implemented by handlers whose Delete removes the entity instead
// of voiding it. Deleting an id that no longer resolves then succeeds.
type Remover interface {
	DeleteRemoves() bool
}

// Audited is implemented by delegates carrying creation/change stamps.
type Audited interface {
	AuditInfo() *domain.Audit
}

// Resource is the type-erased view of a resource used by the registry, the
// converter and the HTTP dispatch.
type Resource interface {
	Name() string
	SupportedType() reflect.Type
	// Represent expands a delegate of the supported type.
	Represent(ctx context.Context, value interface{}, rep Representation) (*SimpleObject, error)
	// Describe lists the rules of ref, default or full; false when unsupported.
	Describe(rep Representation) ([]RuleInfo, bool)

	Create(ctx context.Context, payload *SimpleObject, rep Representation) (*SimpleObject, error)
	Retrieve(ctx context.Context, id string, rep Representation) (*SimpleObject, error)
	Update(ctx context.Context, id string, payload *SimpleObject, rep Representation) (*SimpleObject, error)
	Delete(ctx context.Context, id, reason string) error
	Purge(ctx context.Context, id string) error
	Search(ctx context.Context, query string, rc RequestContext) ([]*SimpleObject, error)
}

// URI returns the canonical location of an entity.
func URI(resource, uuid string) string {
	return URLPrefix + "/" + APIVersion + "/" + resource + "/" + uuid
}

// CrudResource implements the CRUD lifecycle and representation expansion
// for one delegate type on top of a Handler.
type CrudResource[T any] struct {
	h        Handler[T]
	reg      *Registry
	props    PropertyAccessor[T]
	descs    map[Kind]*Description[T]
	builtins map[string]MethodFunc[T]
}

var _ Resource = (*CrudResource[int])(nil)

// NewCrudResource builds the resource and caches its ref, default and full
// descriptions. reg is consulted when nested values are expanded.
func NewCrudResource[T any](h Handler[T], reg *Registry) *CrudResource[T] {
	r := &CrudResource[T]{
		h:     h,
		reg:   reg,
		props: h.Properties(),
		descs: map[Kind]*Description[T]{
			KindRef:     h.Description(Ref),
			KindDefault: h.Description(Default),
			KindFull:    h.Description(Full),
		},
	}
	r.builtins = map[string]MethodFunc[T]{
		"uri":       r.uri,
		"display":   r.display,
		"auditInfo": r.auditInfo,
	}
	return r
}

func (r *CrudResource[T]) Name() string { return r.h.Name() }

func (r *CrudResource[T]) SupportedType() reflect.Type { return reflect.TypeFor[T]() }

func (r *CrudResource[T]) Describe(rep Representation) ([]RuleInfo, bool) {
	d := r.descs[rep.Kind()]
	if d == nil {
		return nil, false
	}
	return describe(d), true
}

// CreateDelegate applies every payload property to a fresh delegate, in
// payload order, then saves it.
func (r *CrudResource[T]) CreateDelegate(ctx context.Context, payload *SimpleObject) (T, error) {
	var zero T
	d := r.h.NewDelegate()
	if err := r.apply(ctx, d, "", payload); err != nil {
		return zero, err
	}
	saved, err := r.h.Save(ctx, d)
	if err != nil {
		return zero, FromDomain(r.Name(), "", err)
	}
	return saved, nil
}

// RetrieveDelegate looks a delegate up by uuid.
func (r *CrudResource[T]) RetrieveDelegate(ctx context.Context, id string) (T, error) {
	var zero T
	d, err := r.h.GetByUniqueID(ctx, id)
	if err != nil {
		return zero, FromDomain(r.Name(), id, err)
	}
	if isNil(d) {
		return zero, NotFound(r.Name(), id)
	}
	return d, nil
}

// UpdateDelegate applies only the supplied properties to the stored delegate.
// Omitted properties, nested ones included, stay untouched.
func (r *CrudResource[T]) UpdateDelegate(ctx context.Context, id string, payload *SimpleObject) (T, error) {
	var zero T
	d, err := r.RetrieveDelegate(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := r.apply(ctx, d, id, payload); err != nil {
		return zero, err
	}
	saved, err := r.h.Save(ctx, d)
	if err != nil {
		return zero, FromDomain(r.Name(), id, err)
	}
	return saved, nil
}

func (r *CrudResource[T]) apply(ctx context.Context, d T, id string, payload *SimpleObject) error {
	for _, key := range payload.Keys() {
		value, _ := payload.Get(key)
		if key == "uuid" && id != "" {
			if s, ok := value.(string); ok && s == id {
				continue
			}
		}
		if err := r.props.Set(ctx, d, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Delete voids or retires the delegate. Deleting an already voided delegate,
// or an already removed one for a Remover, succeeds without touching it.
func (r *CrudResource[T]) Delete(ctx context.Context, id, reason string) error {
	if err := domain.RequireReason(reason); err != nil {
		return FromDomain(r.Name(), id, err)
	}
	d, err := r.RetrieveDelegate(ctx, id)
	if rm, ok := r.h.(Remover); ok && rm.DeleteRemoves() && IsCode(err, CodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if v, ok := any(d).(Voidable); ok && v.IsVoided() {
		return nil
	}
	if err := r.h.Delete(ctx, d, reason); err != nil {
		return FromDomain(r.Name(), id, err)
	}
	return nil
}

// Purge removes the delegate permanently. An unknown id is a no-op.
func (r *CrudResource[T]) Purge(ctx context.Context, id string) error {
	d, err := r.RetrieveDelegate(ctx, id)
	if IsCode(err, CodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.h.Purge(ctx, d); err != nil {
		return FromDomain(r.Name(), id, err)
	}
	return nil
}

// SearchDelegates runs the collaborator search and pages the matches. A blank
// query matches nothing and never reaches the collaborator.
func (r *CrudResource[T]) SearchDelegates(ctx context.Context, query string, rc RequestContext) ([]T, error) {
	if strings.TrimSpace(query) == "" {
		return []T{}, nil
	}
	found, err := r.h.Search(ctx, query)
	if err != nil {
		return nil, FromDomain(r.Name(), "", err)
	}
	return pagination.Slice(found, rc.Page()), nil
}

// AsRepresentation expands a delegate into its wire shape.
func (r *CrudResource[T]) AsRepresentation(ctx context.Context, d T, rep Representation) (*SimpleObject, error) {
	ctx, err := enter(ctx)
	if err != nil {
		return nil, err
	}
	desc, err := r.description(rep)
	if err != nil {
		return nil, err
	}
	obj := NewSimpleObject()
	for _, rule := range desc.Properties() {
		raw, err := r.value(ctx, d, rule)
		if err != nil {
			return nil, err
		}
		nested := Ref
		if rule.Rep != nil {
			nested = *rule.Rep
		}
		v, err := Convert(ctx, r.reg, raw, nested)
		if err != nil {
			return nil, ConversionFailed(rule.Name, err)
		}
		obj.Put(rule.Name, v)
	}
	return obj, nil
}

func (r *CrudResource[T]) description(rep Representation) (*Description[T], error) {
	if rep.IsCustom() {
		return customDescription(r.Name(), rep, r.descs[KindFull], r.descs[KindDefault], r.descs[KindRef])
	}
	d := r.descs[rep.Kind()]
	if d == nil {
		return nil, UnsupportedRepresentation(r.Name(), rep)
	}
	return d, nil
}

func (r *CrudResource[T]) value(ctx context.Context, d T, rule Rule[T]) (interface{}, error) {
	if rule.Method != nil {
		v, err := rule.Method(ctx, d)
		if err != nil {
			return nil, ConversionFailed(rule.Name, err)
		}
		return v, nil
	}
	if r.props.Has(rule.Name) {
		v, err := r.props.Get(ctx, d, rule.Name)
		if err != nil {
			return nil, ConversionFailed(rule.Name, err)
		}
		return v, nil
	}
	if fn, ok := r.builtins[rule.Name]; ok {
		return fn(ctx, d)
	}
	return nil, UnknownProperty(r.Name(), rule.Name)
}

func (r *CrudResource[T]) uri(ctx context.Context, d T) (interface{}, error) {
	id, err := r.props.Get(ctx, d, "uuid")
	if err != nil {
		return nil, err
	}
	return URI(r.Name(), fmt.Sprint(id)), nil
}

func (r *CrudResource[T]) display(_ context.Context, d T) (interface{}, error) {
	return r.h.DisplayString(d), nil
}

func (r *CrudResource[T]) auditInfo(_ context.Context, d T) (interface{}, error) {
	a, ok := any(d).(Audited)
	if !ok || a.AuditInfo() == nil {
		return nil, nil
	}
	info := a.AuditInfo()
	obj := NewSimpleObject().
		Put("creator", info.Creator).
		Put("dateCreated", info.DateCreated.Format(DateTimeLayout))
	if info.ChangedBy != "" {
		obj.Put("changedBy", info.ChangedBy)
	}
	if info.DateChanged != nil {
		obj.Put("dateChanged", info.DateChanged.Format(DateTimeLayout))
	}
	return obj, nil
}

// Represent implements Resource.
func (r *CrudResource[T]) Represent(ctx context.Context, value interface{}, rep Representation) (*SimpleObject, error) {
	d, ok := value.(T)
	if !ok {
		return nil, fmt.Errorf("%s cannot represent %T", r.Name(), value)
	}
	return r.AsRepresentation(ctx, d, rep)
}

func (r *CrudResource[T]) Create(ctx context.Context, payload *SimpleObject, rep Representation) (*SimpleObject, error) {
	d, err := r.CreateDelegate(ctx, payload)
	if err != nil {
		return nil, err
	}
	return r.AsRepresentation(ctx, d, rep)
}

func (r *CrudResource[T]) Retrieve(ctx context.Context, id string, rep Representation) (*SimpleObject, error) {
	d, err := r.RetrieveDelegate(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.AsRepresentation(ctx, d, rep)
}

func (r *CrudResource[T]) Update(ctx context.Context, id string, payload *SimpleObject, rep Representation) (*SimpleObject, error) {
	d, err := r.UpdateDelegate(ctx, id, payload)
	if err != nil {
		return nil, err
	}
	return r.AsRepresentation(ctx, d, rep)
}

func (r *CrudResource[T]) Search(ctx context.Context, query string, rc RequestContext) ([]*SimpleObject, error) {
	found, err := r.SearchDelegates(ctx, query, rc)
	if err != nil {
		return nil, err
	}
	out := make([]*SimpleObject, 0, len(found))
	for _, d := range found {
		obj, err := r.AsRepresentation(ctx, d, rc.Representation)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
