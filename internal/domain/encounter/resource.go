package encounter

import (
	"context"
	"time"

	"github.com/ehr/restws/internal/domain/concept"
	"github.com/ehr/restws/internal/domain/person"
	"github.com/ehr/restws/internal/platform/rest"
)

// DisplayDateLayout formats the date part of an encounter display.
const DisplayDateLayout = "02/01/2006"

func metadataDescription[T any](rep rest.Representation) *rest.Description[T] {
	switch rep.Kind() {
	case rest.KindRef:
		return rest.NewDescription[T]().AddProperty("uuid", "display", "uri")
	case rest.KindDefault:
		return rest.NewDescription[T]().AddProperty("uuid", "display", "name", "description", "retired", "uri")
	case rest.KindFull:
		return rest.NewDescription[T]().AddProperty("uuid", "display", "name", "description", "retired", "auditInfo", "uri")
	}
	return nil
}

// LocationResource exposes locations under /location.
type LocationResource struct {
	svc   *Service
	table *rest.PropertyTable[*Location]
}

func NewLocationResource(svc *Service) *LocationResource {
	t := rest.NewPropertyTable[*Location]("location")
	rest.ReadOnly(t, "uuid", func(l *Location) string { return l.UUID })
	rest.Field(t, "name", func(l *Location) string { return l.Name },
		func(l *Location, v string) { l.Name = v }, rest.String)
	rest.Field(t, "description", func(l *Location) string { return l.Description },
		func(l *Location, v string) { l.Description = v }, rest.String)
	rest.ReadOnly(t, "retired", func(l *Location) bool { return l.Retired })
	return &LocationResource{svc: svc, table: t}
}

func (r *LocationResource) Name() string           { return "location" }
func (r *LocationResource) NewDelegate() *Location { return &Location{} }

func (r *LocationResource) GetByUniqueID(ctx context.Context, id string) (*Location, error) {
	return r.svc.GetLocation(ctx, id)
}

func (r *LocationResource) Save(ctx context.Context, l *Location) (*Location, error) {
	return r.svc.SaveLocation(ctx, l)
}

func (r *LocationResource) Delete(ctx context.Context, l *Location, reason string) error {
	return r.svc.RetireLocation(ctx, l, reason)
}

func (r *LocationResource) Purge(ctx context.Context, l *Location) error {
	return r.svc.PurgeLocation(ctx, l)
}

func (r *LocationResource) Search(ctx context.Context, query string) ([]*Location, error) {
	return r.svc.SearchLocations(ctx, query)
}

func (r *LocationResource) Description(rep rest.Representation) *rest.Description[*Location] {
	return metadataDescription[*Location](rep)
}

func (r *LocationResource) Properties() rest.PropertyAccessor[*Location] { return r.table }
func (r *LocationResource) DisplayString(l *Location) string              { return l.Name }

// EncounterTypeResource exposes encounter types under /encountertype.
type EncounterTypeResource struct {
	svc   *Service
	table *rest.PropertyTable[*EncounterType]
}

func NewEncounterTypeResource(svc *Service) *EncounterTypeResource {
	t := rest.NewPropertyTable[*EncounterType]("encountertype")
	rest.ReadOnly(t, "uuid", func(x *EncounterType) string { return x.UUID })
	rest.Field(t, "name", func(x *EncounterType) string { return x.Name },
		func(x *EncounterType, v string) { x.Name = v }, rest.String)
	rest.Field(t, "description", func(x *EncounterType) string { return x.Description },
		func(x *EncounterType, v string) { x.Description = v }, rest.String)
	rest.ReadOnly(t, "retired", func(x *EncounterType) bool { return x.Retired })
	return &EncounterTypeResource{svc: svc, table: t}
}

func (r *EncounterTypeResource) Name() string                { return "encountertype" }
func (r *EncounterTypeResource) NewDelegate() *EncounterType { return &EncounterType{} }

func (r *EncounterTypeResource) GetByUniqueID(ctx context.Context, id string) (*EncounterType, error) {
	return r.svc.GetEncounterType(ctx, id)
}

func (r *EncounterTypeResource) Save(ctx context.Context, t *EncounterType) (*EncounterType, error) {
	return r.svc.SaveEncounterType(ctx, t)
}

func (r *EncounterTypeResource) Delete(ctx context.Context, t *EncounterType, reason string) error {
	return r.svc.RetireEncounterType(ctx, t, reason)
}

func (r *EncounterTypeResource) Purge(ctx context.Context, t *EncounterType) error {
	return r.svc.PurgeEncounterType(ctx, t)
}

func (r *EncounterTypeResource) Search(ctx context.Context, query string) ([]*EncounterType, error) {
	return r.svc.SearchEncounterTypes(ctx, query)
}

func (r *EncounterTypeResource) Description(rep rest.Representation) *rest.Description[*EncounterType] {
	return metadataDescription[*EncounterType](rep)
}

func (r *EncounterTypeResource) Properties() rest.PropertyAccessor[*EncounterType] { return r.table }
func (r *EncounterTypeResource) DisplayString(t *EncounterType) string              { return t.Name }

// EncounterResource exposes encounters under /encounter.
type EncounterResource struct {
	svc   *Service
	table *rest.PropertyTable[*Encounter]
}

func NewEncounterResource(svc *Service, people People) *EncounterResource {
	t := rest.NewPropertyTable[*Encounter]("encounter")
	rest.ReadOnly(t, "uuid", func(e *Encounter) string { return e.UUID })
	rest.Field(t, "encounterDatetime", func(e *Encounter) time.Time { return e.EncounterDatetime },
		func(e *Encounter, v time.Time) { e.EncounterDatetime = v }, rest.Date)
	rest.Field(t, "patient", func(e *Encounter) *person.Patient { return e.Patient },
		func(e *Encounter, v *person.Patient) { e.Patient = v }, rest.Reference(people.GetPatient))
	rest.Field(t, "location", func(e *Encounter) *Location { return e.Location },
		func(e *Encounter, v *Location) { e.Location = v }, rest.Reference(svc.GetLocation))
	rest.Field(t, "encounterType", func(e *Encounter) *EncounterType { return e.EncounterType },
		func(e *Encounter, v *EncounterType) { e.EncounterType = v }, rest.Reference(svc.GetEncounterType))
	rest.Field(t, "provider", func(e *Encounter) *person.Person { return e.Provider },
		func(e *Encounter, v *person.Person) { e.Provider = v }, rest.Reference(people.GetPerson))
	rest.ReadOnly(t, "obs", func(e *Encounter) []*Obs { return e.Obs })
	rest.ReadOnly(t, "voided", func(e *Encounter) bool { return e.Voided })
	rest.ReadOnly(t, "voidReason", func(e *Encounter) string { return e.VoidReason })
	return &EncounterResource{svc: svc, table: t}
}

func (r *EncounterResource) Name() string            { return "encounter" }
func (r *EncounterResource) NewDelegate() *Encounter { return &Encounter{} }

func (r *EncounterResource) GetByUniqueID(ctx context.Context, id string) (*Encounter, error) {
	return r.svc.GetEncounter(ctx, id)
}

func (r *EncounterResource) Save(ctx context.Context, e *Encounter) (*Encounter, error) {
	return r.svc.SaveEncounter(ctx, e)
}

func (r *EncounterResource) Delete(ctx context.Context, e *Encounter, reason string) error {
	return r.svc.VoidEncounter(ctx, e, reason)
}

func (r *EncounterResource) Purge(ctx context.Context, e *Encounter) error {
	return r.svc.PurgeEncounter(ctx, e)
}

func (r *EncounterResource) Search(ctx context.Context, query string) ([]*Encounter, error) {
	return r.svc.SearchEncounters(ctx, query)
}

func (r *EncounterResource) Description(rep rest.Representation) *rest.Description[*Encounter] {
	switch rep.Kind() {
	case rest.KindRef:
		return rest.NewDescription[*Encounter]().AddProperty("uuid", "display", "uri")
	case rest.KindDefault:
		return rest.NewDescription[*Encounter]().
			AddProperty("uuid", "display", "encounterDatetime").
			AddNested("patient", rest.Ref).
			AddNested("location", rest.Ref).
			AddNested("encounterType", rest.Ref).
			AddNested("provider", rest.Ref).
			AddNested("obs", rest.Ref).
			AddProperty("voided", "uri")
	case rest.KindFull:
		return rest.NewDescription[*Encounter]().
			AddProperty("uuid", "display", "encounterDatetime").
			AddNested("patient", rest.Default).
			AddNested("location", rest.Default).
			AddNested("encounterType", rest.Default).
			AddNested("provider", rest.Default).
			AddNested("obs", rest.Default).
			AddProperty("voided", "voidReason", "auditInfo", "uri")
	}
	return nil
}

func (r *EncounterResource) Properties() rest.PropertyAccessor[*Encounter] { return r.table }

// DisplayString is the encounter type name followed by the date.
func (r *EncounterResource) DisplayString(e *Encounter) string {
	date := e.EncounterDatetime.Format(DisplayDateLayout)
	if e.EncounterType == nil || e.EncounterType.Name == "" {
		return date
	}
	return e.EncounterType.Name + " " + date
}

// ObsResource exposes observations under /obs.
type ObsResource struct {
	svc   *Service
	table *rest.PropertyTable[*Obs]
}

func NewObsResource(svc *Service, people People, concepts Concepts) *ObsResource {
	t := rest.NewPropertyTable[*Obs]("obs")
	rest.ReadOnly(t, "uuid", func(o *Obs) string { return o.UUID })
	rest.Field(t, "concept", func(o *Obs) *concept.Concept { return o.Concept },
		func(o *Obs, v *concept.Concept) { o.Concept = v }, rest.Reference(concepts.GetConcept))
	rest.Field(t, "value", func(o *Obs) string { return o.Value },
		func(o *Obs, v string) { o.Value = v }, rest.String)
	rest.Field(t, "obsDatetime", func(o *Obs) time.Time { return o.ObsDatetime },
		func(o *Obs, v time.Time) { o.ObsDatetime = v }, rest.Date)
	rest.Field(t, "encounter", func(o *Obs) *Encounter { return o.Encounter },
		func(o *Obs, v *Encounter) { o.Encounter = v }, rest.Reference(svc.GetEncounter))
	rest.Field(t, "person", func(o *Obs) *person.Person { return o.Person },
		func(o *Obs, v *person.Person) { o.Person = v }, rest.Reference(people.GetPerson))
	rest.ReadOnly(t, "voided", func(o *Obs) bool { return o.Voided })
	return &ObsResource{svc: svc, table: t}
}

func (r *ObsResource) Name() string      { return "obs" }
func (r *ObsResource) NewDelegate() *Obs { return &Obs{} }

func (r *ObsResource) GetByUniqueID(ctx context.Context, id string) (*Obs, error) {
	return r.svc.GetObs(ctx, id)
}

func (r *ObsResource) Save(ctx context.Context, o *Obs) (*Obs, error) {
	return r.svc.SaveObs(ctx, o)
}

func (r *ObsResource) Delete(ctx context.Context, o *Obs, reason string) error {
	return r.svc.VoidObs(ctx, o, reason)
}

func (r *ObsResource) Purge(ctx context.Context, o *Obs) error {
	return r.svc.PurgeObs(ctx, o)
}

func (r *ObsResource) Search(ctx context.Context, query string) ([]*Obs, error) {
	return r.svc.SearchObs(ctx, query)
}

func (r *ObsResource) Description(rep rest.Representation) *rest.Description[*Obs] {
	switch rep.Kind() {
	case rest.KindRef:
		return rest.NewDescription[*Obs]().AddProperty("uuid", "display", "uri")
	case rest.KindDefault:
		return rest.NewDescription[*Obs]().
			AddProperty("uuid", "display").
			AddNested("concept", rest.Ref).
			AddProperty("value", "obsDatetime").
			AddNested("encounter", rest.Ref).
			AddProperty("voided", "uri")
	case rest.KindFull:
		return rest.NewDescription[*Obs]().
			AddProperty("uuid", "display").
			AddNested("concept", rest.Ref).
			AddProperty("value", "obsDatetime").
			AddNested("encounter", rest.Ref).
			AddNested("person", rest.Ref).
			AddProperty("voided", "auditInfo", "uri")
	}
	return nil
}

func (r *ObsResource) Properties() rest.PropertyAccessor[*Obs] { return r.table }

// DisplayString is "concept name: value".
func (r *ObsResource) DisplayString(o *Obs) string {
	if o.Concept == nil {
		return o.Value
	}
	return o.Concept.Name + ": " + o.Value
}
