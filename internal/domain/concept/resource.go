package concept

import (
	"context"

	"github.com/ehr/restws/internal/platform/rest"
)

// ConceptResource exposes concepts under /concept.
type ConceptResource struct {
	svc   *Service
	table *rest.PropertyTable[*Concept]
}

func NewConceptResource(svc *Service) *ConceptResource {
	t := rest.NewPropertyTable[*Concept]("concept")
	rest.ReadOnly(t, "uuid", func(c *Concept) string { return c.UUID })
	rest.Field(t, "name", func(c *Concept) string { return c.Name },
		func(c *Concept, v string) { c.Name = v }, rest.String)
	rest.Field(t, "datatype", func(c *Concept) string { return c.Datatype },
		func(c *Concept, v string) { c.Datatype = v }, rest.Enum(Datatypes...))
	rest.Field(t, "conceptClass", func(c *Concept) string { return c.ConceptClass },
		func(c *Concept, v string) { c.ConceptClass = v }, rest.Enum(Classes...))
	rest.Field(t, "set", func(c *Concept) bool { return c.Set },
		func(c *Concept, v bool) { c.Set = v }, rest.Bool)
	rest.Field(t, "version", func(c *Concept) string { return c.Version },
		func(c *Concept, v string) { c.Version = v }, rest.String)
	rest.ReadOnly(t, "retired", func(c *Concept) bool { return c.Retired })
	rest.ReadOnly(t, "descriptions", func(c *Concept) []*Description { return c.Descriptions })
	return &ConceptResource{svc: svc, table: t}
}

func (r *ConceptResource) Name() string          { return "concept" }
func (r *ConceptResource) NewDelegate() *Concept { return &Concept{} }

func (r *ConceptResource) GetByUniqueID(ctx context.Context, id string) (*Concept, error) {
	return r.svc.GetConcept(ctx, id)
}

func (r *ConceptResource) Save(ctx context.Context, c *Concept) (*Concept, error) {
	return r.svc.SaveConcept(ctx, c)
}

func (r *ConceptResource) Delete(ctx context.Context, c *Concept, reason string) error {
	return r.svc.RetireConcept(ctx, c, reason)
}

func (r *ConceptResource) Purge(ctx context.Context, c *Concept) error {
	return r.svc.PurgeConcept(ctx, c)
}

func (r *ConceptResource) Search(ctx context.Context, query string) ([]*Concept, error) {
	return r.svc.SearchConcepts(ctx, query)
}

func (r *ConceptResource) Description(rep rest.Representation) *rest.Description[*Concept] {
	switch rep.Kind() {
	case rest.KindRef:
		return rest.NewDescription[*Concept]().AddProperty("uuid", "display", "uri")
	case rest.KindDefault:
		return rest.NewDescription[*Concept]().
			AddProperty("uuid", "display", "name", "datatype", "conceptClass", "set", "version", "retired").
			AddNested("descriptions", rest.Ref).
			AddProperty("uri")
	case rest.KindFull:
		return rest.NewDescription[*Concept]().
			AddProperty("uuid", "display", "name", "datatype", "conceptClass", "set", "version", "retired").
			AddNested("descriptions", rest.Default).
			AddProperty("auditInfo", "uri")
	}
	return nil
}

func (r *ConceptResource) Properties() rest.PropertyAccessor[*Concept] { return r.table }
func (r *ConceptResource) DisplayString(c *Concept) string              { return c.Name }

// DescriptionResource exposes concept descriptions under /conceptdescription.
type DescriptionResource struct {
	svc   *Service
	table *rest.PropertyTable[*Description]
}

func NewDescriptionResource(svc *Service) *DescriptionResource {
	t := rest.NewPropertyTable[*Description]("conceptdescription")
	rest.ReadOnly(t, "uuid", func(d *Description) string { return d.UUID })
	rest.Field(t, "description", func(d *Description) string { return d.Description },
		func(d *Description, v string) { d.Description = v }, rest.String)
	rest.Field(t, "locale", func(d *Description) string { return d.Locale },
		func(d *Description, v string) { d.Locale = v }, rest.String)
	rest.Field(t, "concept", func(d *Description) *Concept { return d.Concept },
		func(d *Description, v *Concept) { d.Concept = v }, rest.Reference(svc.GetConcept))
	return &DescriptionResource{svc: svc, table: t}
}

func (r *DescriptionResource) Name() string              { return "conceptdescription" }
func (r *DescriptionResource) NewDelegate() *Description { return &Description{} }

func (r *DescriptionResource) GetByUniqueID(ctx context.Context, id string) (*Description, error) {
	return r.svc.GetDescription(ctx, id)
}

func (r *DescriptionResource) Save(ctx context.Context, d *Description) (*Description, error) {
	return r.svc.SaveDescription(ctx, d)
}

func (r *DescriptionResource) Delete(ctx context.Context, d *Description, _ string) error {
	return r.svc.RemoveDescription(ctx, d)
}

// DeleteRemoves reports that descriptions carry no void state; delete drops
// them from their concept.
func (r *DescriptionResource) DeleteRemoves() bool { return true }

func (r *DescriptionResource) Purge(ctx context.Context, d *Description) error {
	return r.svc.RemoveDescription(ctx, d)
}

func (r *DescriptionResource) Search(context.Context, string) ([]*Description, error) {
	return nil, rest.ErrOperationNotSupported
}

func (r *DescriptionResource) Description(rep rest.Representation) *rest.Description[*Description] {
	switch rep.Kind() {
	case rest.KindRef:
		return rest.NewDescription[*Description]().AddProperty("uuid", "description", "uri")
	case rest.KindDefault:
		return rest.NewDescription[*Description]().AddProperty("uuid", "description", "locale", "uri")
	case rest.KindFull:
		return rest.NewDescription[*Description]().AddProperty("uuid", "description", "locale", "auditInfo", "uri")
	}
	return nil
}

func (r *DescriptionResource) Properties() rest.PropertyAccessor[*Description] { return r.table }
func (r *DescriptionResource) DisplayString(d *Description) string              { return d.Description }
