package rest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ehr/restws/internal/domain"
)

func mustRep(t testing.TB, s string) Representation {
	t.Helper()
	rep, err := ParseRepresentation(s)
	if err != nil {
		t.Fatalf("ParseRepresentation(%q): %v", s, err)
	}
	return rep
}

type owner struct {
	UUID string
	Name string
}

type thing struct {
	UUID       string
	Name       string
	Count      int
	Kind       string
	When       time.Time
	Owner      *owner
	Tags       []string
	Voided     bool
	VoidReason string
	Children   []*owner
}

func (t *thing) IsVoided() bool { return t.Voided }

// ownerHandler is a read-mostly resource used to exercise nested expansion.
type ownerHandler struct {
	mu     sync.Mutex
	owners map[string]*owner
	table  *PropertyTable[*owner]
}

func newOwnerHandler(owners ...*owner) *ownerHandler {
	h := &ownerHandler{owners: make(map[string]*owner), table: NewPropertyTable[*owner]("owner")}
	for _, o := range owners {
		h.owners[o.UUID] = o
	}
	ReadOnly(h.table, "uuid", func(o *owner) string { return o.UUID })
	Field(h.table, "name", func(o *owner) string { return o.Name }, func(o *owner, v string) { o.Name = v }, String)
	return h
}

func (h *ownerHandler) Name() string         { return "owner" }
func (h *ownerHandler) NewDelegate() *owner { return &owner{} }

func (h *ownerHandler) GetByUniqueID(_ context.Context, id string) (*owner, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.owners[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (h *ownerHandler) Save(_ context.Context, o *owner) (*owner, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if o.UUID == "" {
		o.UUID = fmt.Sprintf("owner-%d", len(h.owners)+1)
	}
	h.owners[o.UUID] = o
	return o, nil
}

func (h *ownerHandler) Delete(context.Context, *owner, string) error { return ErrOperationNotSupported }
func (h *ownerHandler) Purge(context.Context, *owner) error          { return ErrOperationNotSupported }
func (h *ownerHandler) Search(context.Context, string) ([]*owner, error) {
	return nil, ErrOperationNotSupported
}

func (h *ownerHandler) Description(rep Representation) *Description[*owner] {
	switch rep.Kind() {
	case KindRef:
		return NewDescription[*owner]().AddProperty("uuid", "display", "uri")
	case KindDefault, KindFull:
		return NewDescription[*owner]().AddProperty("uuid", "display", "name", "uri")
	}
	return nil
}

func (h *ownerHandler) Properties() PropertyAccessor[*owner] { return h.table }
func (h *ownerHandler) DisplayString(o *owner) string         { return o.Name }

// thingHandler is an in-memory resource with void and purge semantics.
type thingHandler struct {
	mu       sync.Mutex
	things   map[string]*thing
	order    []string
	owners   *ownerHandler
	table    *PropertyTable[*thing]
	noFull   bool
	blocked  map[string]bool
	saveErr  error
	searches int
	displays int
	deletes  int
	seq      int
}

func newThingHandler(owners *ownerHandler) *thingHandler {
	h := &thingHandler{
		things:  make(map[string]*thing),
		owners:  owners,
		table:   NewPropertyTable[*thing]("thing"),
		blocked: make(map[string]bool),
	}
	ReadOnly(h.table, "uuid", func(t *thing) string { return t.UUID })
	Field(h.table, "name", func(t *thing) string { return t.Name }, func(t *thing, v string) { t.Name = v }, String)
	Field(h.table, "count", func(t *thing) int { return t.Count }, func(t *thing, v int) { t.Count = v }, Int)
	Field(h.table, "kind", func(t *thing) string { return t.Kind }, func(t *thing, v string) { t.Kind = v }, Enum("small", "large"))
	Field(h.table, "when", func(t *thing) time.Time { return t.When }, func(t *thing, v time.Time) { t.When = v }, Date)
	Field(h.table, "owner", func(t *thing) *owner { return t.Owner }, func(t *thing, v *owner) { t.Owner = v },
		Reference(owners.GetByUniqueID))
	Field(h.table, "tags", func(t *thing) []string { return t.Tags }, func(t *thing, v []string) { t.Tags = v }, StringList)
	Field(h.table, "children", func(t *thing) []*owner { return t.Children }, func(t *thing, v []*owner) { t.Children = v },
		ReferenceList(owners.GetByUniqueID))
	ReadOnly(h.table, "voided", func(t *thing) bool { return t.Voided })
	return h
}

func (h *thingHandler) Name() string         { return "thing" }
func (h *thingHandler) NewDelegate() *thing { return &thing{} }

func (h *thingHandler) GetByUniqueID(_ context.Context, id string) (*thing, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.things[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (h *thingHandler) Save(_ context.Context, t *thing) (*thing, error) {
	if h.saveErr != nil {
		return nil, h.saveErr
	}
	if strings.TrimSpace(t.Name) == "" {
		return nil, domain.Invalid("name", "name is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if t.UUID == "" {
		h.seq++
		t.UUID = fmt.Sprintf("thing-%03d", h.seq)
		h.order = append(h.order, t.UUID)
	}
	cp := *t
	h.things[t.UUID] = &cp
	return t, nil
}

func (h *thingHandler) Delete(_ context.Context, t *thing, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deletes++
	stored := h.things[t.UUID]
	stored.Voided = true
	stored.VoidReason = reason
	return nil
}

func (h *thingHandler) Purge(_ context.Context, t *thing) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.blocked[t.UUID] {
		return domain.Dependents("thing %s is referenced", t.UUID)
	}
	delete(h.things, t.UUID)
	return nil
}

func (h *thingHandler) Search(_ context.Context, q string) ([]*thing, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.searches++
	var out []*thing
	ids := append([]string(nil), h.order...)
	sort.Strings(ids)
	for _, id := range ids {
		t, ok := h.things[id]
		if ok && domain.Matches(q, t.Name) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (h *thingHandler) Description(rep Representation) *Description[*thing] {
	switch rep.Kind() {
	case KindRef:
		return NewDescription[*thing]().AddProperty("uuid", "display", "uri")
	case KindDefault:
		return NewDescription[*thing]().
			AddProperty("uuid", "display", "name", "count", "kind", "when").
			AddNested("owner", Ref).
			AddProperty("tags", "voided", "uri")
	case KindFull:
		if h.noFull {
			return nil
		}
		return NewDescription[*thing]().
			AddProperty("uuid", "display", "name", "count", "kind", "when").
			AddNested("owner", Default).
			AddNested("children", Ref).
			AddProperty("tags", "voided").
			AddMethod("shout", func(_ context.Context, t *thing) (interface{}, error) {
				return strings.ToUpper(t.Name), nil
			}).
			AddProperty("uri")
	}
	return nil
}

func (h *thingHandler) Properties() PropertyAccessor[*thing] { return h.table }

func (h *thingHandler) DisplayString(t *thing) string {
	h.mu.Lock()
	h.displays++
	h.mu.Unlock()
	return t.Name
}

type testEnv struct {
	reg    *Registry
	things *thingHandler
	owners *ownerHandler
	thing  *CrudResource[*thing]
	owner  *CrudResource[*owner]
}

func newTestEnv() *testEnv {
	owners := newOwnerHandler(&owner{UUID: "o-1", Name: "Alice"}, &owner{UUID: "o-2", Name: "Bob"})
	things := newThingHandler(owners)
	reg := NewRegistry()
	env := &testEnv{
		reg:    reg,
		things: things,
		owners: owners,
		thing:  NewCrudResource[*thing](things, reg),
		owner:  NewCrudResource[*owner](owners, reg),
	}
	if err := reg.Register(env.thing, 0); err != nil {
		panic(err)
	}
	if err := reg.Register(env.owner, 0); err != nil {
		panic(err)
	}
	if err := reg.Freeze(); err != nil {
		panic(err)
	}
	return env
}

func payload(kv ...interface{}) *SimpleObject {
	obj := NewSimpleObject()
	for i := 0; i+1 < len(kv); i += 2 {
		obj.Put(kv[i].(string), kv[i+1])
	}
	return obj
}
