package person

import (
	"context"
	"time"

	"github.com/ehr/restws/internal/platform/rest"
)

// PersonResource exposes people under /person.
type PersonResource struct {
	svc   *Service
	table *rest.PropertyTable[*Person]
}

func NewPersonResource(svc *Service) *PersonResource {
	t := rest.NewPropertyTable[*Person]("person")
	rest.ReadOnly(t, "uuid", func(p *Person) string { return p.UUID })
	rest.Field(t, "givenName", func(p *Person) string { return p.GivenName },
		func(p *Person, v string) { p.GivenName = v }, rest.String)
	rest.Field(t, "middleName", func(p *Person) string { return p.MiddleName },
		func(p *Person, v string) { p.MiddleName = v }, rest.String)
	rest.Field(t, "familyName", func(p *Person) string { return p.FamilyName },
		func(p *Person, v string) { p.FamilyName = v }, rest.String)
	rest.Field(t, "gender", func(p *Person) string { return p.Gender },
		func(p *Person, v string) { p.Gender = v }, rest.Enum(Genders...))
	rest.Field(t, "birthdate", func(p *Person) *time.Time { return p.Birthdate },
		func(p *Person, v *time.Time) { p.Birthdate = v }, rest.OptionalDate)
	rest.Field(t, "birthdateEstimated", func(p *Person) bool { return p.BirthdateEstimated },
		func(p *Person, v bool) { p.BirthdateEstimated = v }, rest.Bool)
	rest.Field(t, "dead", func(p *Person) bool { return p.Dead },
		func(p *Person, v bool) { p.Dead = v }, rest.Bool)
	rest.ReadOnly(t, "voided", func(p *Person) bool { return p.Voided })
	return &PersonResource{svc: svc, table: t}
}

func (r *PersonResource) Name() string         { return "person" }
func (r *PersonResource) NewDelegate() *Person { return &Person{} }

func (r *PersonResource) GetByUniqueID(ctx context.Context, id string) (*Person, error) {
	return r.svc.GetPerson(ctx, id)
}

func (r *PersonResource) Save(ctx context.Context, p *Person) (*Person, error) {
	return r.svc.SavePerson(ctx, p)
}

func (r *PersonResource) Delete(ctx context.Context, p *Person, reason string) error {
	return r.svc.VoidPerson(ctx, p, reason)
}

func (r *PersonResource) Purge(ctx context.Context, p *Person) error {
	return r.svc.PurgePerson(ctx, p)
}

func (r *PersonResource) Search(ctx context.Context, query string) ([]*Person, error) {
	return r.svc.SearchPersons(ctx, query)
}

func (r *PersonResource) Description(rep rest.Representation) *rest.Description[*Person] {
	switch rep.Kind() {
	case rest.KindRef:
		return rest.NewDescription[*Person]().AddProperty("uuid", "display", "uri")
	case rest.KindDefault:
		return rest.NewDescription[*Person]().
			AddProperty("uuid", "display", "givenName", "familyName", "gender", "birthdate", "birthdateEstimated").
			AddMethod("age", r.age).
			AddProperty("dead", "voided", "uri")
	case rest.KindFull:
		return rest.NewDescription[*Person]().
			AddProperty("uuid", "display", "givenName", "middleName", "familyName", "gender", "birthdate", "birthdateEstimated").
			AddMethod("age", r.age).
			AddProperty("dead", "voided", "auditInfo", "uri")
	}
	return nil
}

func (r *PersonResource) age(_ context.Context, p *Person) (interface{}, error) {
	return p.Age(r.svc.now()), nil
}

func (r *PersonResource) Properties() rest.PropertyAccessor[*Person] { return r.table }
func (r *PersonResource) DisplayString(p *Person) string              { return p.FullName() }

// PatientResource exposes patients under /patient.
type PatientResource struct {
	svc   *Service
	table *rest.PropertyTable[*Patient]
}

func NewPatientResource(svc *Service) *PatientResource {
	t := rest.NewPropertyTable[*Patient]("patient")
	rest.ReadOnly(t, "uuid", func(p *Patient) string { return p.UUID })
	rest.Field(t, "identifier", func(p *Patient) string { return p.Identifier },
		func(p *Patient, v string) { p.Identifier = v }, rest.String)
	rest.Field(t, "person", func(p *Patient) *Person { return p.Person },
		func(p *Patient, v *Person) { p.Person = v }, rest.Reference(svc.GetPerson))
	rest.ReadOnly(t, "voided", func(p *Patient) bool { return p.Voided })
	return &PatientResource{svc: svc, table: t}
}

func (r *PatientResource) Name() string          { return "patient" }
func (r *PatientResource) NewDelegate() *Patient { return &Patient{} }

func (r *PatientResource) GetByUniqueID(ctx context.Context, id string) (*Patient, error) {
	return r.svc.GetPatient(ctx, id)
}

func (r *PatientResource) Save(ctx context.Context, p *Patient) (*Patient, error) {
	return r.svc.SavePatient(ctx, p)
}

func (r *PatientResource) Delete(ctx context.Context, p *Patient, reason string) error {
	return r.svc.VoidPatient(ctx, p, reason)
}

func (r *PatientResource) Purge(ctx context.Context, p *Patient) error {
	return r.svc.PurgePatient(ctx, p)
}

func (r *PatientResource) Search(ctx context.Context, query string) ([]*Patient, error) {
	return r.svc.SearchPatients(ctx, query)
}

func (r *PatientResource) Description(rep rest.Representation) *rest.Description[*Patient] {
	switch rep.Kind() {
	case rest.KindRef:
		return rest.NewDescription[*Patient]().AddProperty("uuid", "display", "uri")
	case rest.KindDefault:
		return rest.NewDescription[*Patient]().
			AddProperty("uuid", "display", "identifier").
			AddNested("person", rest.Ref).
			AddProperty("voided", "uri")
	case rest.KindFull:
		return rest.NewDescription[*Patient]().
			AddProperty("uuid", "display", "identifier").
			AddNested("person", rest.Default).
			AddProperty("voided", "auditInfo", "uri")
	}
	return nil
}

func (r *PatientResource) Properties() rest.PropertyAccessor[*Patient] { return r.table }

func (r *PatientResource) DisplayString(p *Patient) string {
	if p.Person == nil {
		return p.Identifier
	}
	return p.Identifier + " - " + p.Person.FullName()
}
