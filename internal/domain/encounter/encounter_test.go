package encounter

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ehr/restws/internal/domain"
	"github.com/ehr/restws/internal/domain/concept"
	"github.com/ehr/restws/internal/domain/person"
	"github.com/ehr/restws/internal/platform/rest"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	people    *person.Service
	concepts  *concept.Service
	location  *rest.CrudResource[*Location]
	types     *rest.CrudResource[*EncounterType]
	encounter *rest.CrudResource[*Encounter]
	obs       *rest.CrudResource[*Obs]

	patient  *person.Patient
	provider *person.Person
	visit    *EncounterType
	clinic   *Location
	weight   *concept.Concept
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	persons := person.NewMemoryPersonRepo()
	people := person.NewService(persons, person.NewMemoryPatientRepo(persons))
	concepts := concept.NewService(concept.NewMemoryConceptRepo(), concept.NewMemoryDescriptionRepo(), nil)
	svc := NewService(Repos{
		Locations:  NewMemoryLocationRepo(),
		Types:      NewMemoryEncounterTypeRepo(),
		Encounters: NewMemoryEncounterRepo(),
		Obs:        NewMemoryObsRepo(),
	}, people, concepts, nil)
	svc.now = func() time.Time { return fixedNow }
	people.AddPatientDependency(domain.Dependency{Kind: "encounters", Count: svc.CountByPatient})
	people.AddPersonDependency(domain.Dependency{Kind: "encounters or obs", Count: svc.CountByPerson})
	concepts.AddDependency(domain.Dependency{Kind: "obs", Count: svc.CountByConcept})

	reg := rest.NewRegistry()
	f := &fixture{
		svc:       svc,
		people:    people,
		concepts:  concepts,
		location:  rest.NewCrudResource[*Location](NewLocationResource(svc), reg),
		types:     rest.NewCrudResource[*EncounterType](NewEncounterTypeResource(svc), reg),
		encounter: rest.NewCrudResource[*Encounter](NewEncounterResource(svc, people), reg),
		obs:       rest.NewCrudResource[*Obs](NewObsResource(svc, people, concepts), reg),
	}
	all := []rest.Resource{
		f.location, f.types, f.encounter, f.obs,
		rest.NewCrudResource[*person.Person](person.NewPersonResource(people), reg),
		rest.NewCrudResource[*person.Patient](person.NewPatientResource(people), reg),
		rest.NewCrudResource[*concept.Concept](concept.NewConceptResource(concepts), reg),
	}
	for _, res := range all {
		if err := reg.Register(res, 0); err != nil {
			t.Fatalf("Register() error: %v", err)
		}
		if err := rest.CheckDescriptions(res); err != nil {
			t.Fatalf("CheckDescriptions(%s) error: %v", res.Name(), err)
		}
	}
	if err := reg.Freeze(); err != nil {
		t.Fatalf("Freeze() error: %v", err)
	}

	var err error
	owner, err := people.SavePerson(ctx, &person.Person{GivenName: "Ada", FamilyName: "Lovelace", Gender: "F"})
	if err != nil {
		t.Fatalf("SavePerson() error: %v", err)
	}
	if f.patient, err = people.SavePatient(ctx, &person.Patient{Identifier: "100-8", Person: owner}); err != nil {
		t.Fatalf("SavePatient() error: %v", err)
	}
	if f.provider, err = people.SavePerson(ctx, &person.Person{GivenName: "John", FamilyName: "Snow", Gender: "M"}); err != nil {
		t.Fatalf("SavePerson() error: %v", err)
	}
	if f.visit, err = svc.SaveEncounterType(ctx, &EncounterType{Name: "Adult Return"}); err != nil {
		t.Fatalf("SaveEncounterType() error: %v", err)
	}
	if f.clinic, err = svc.SaveLocation(ctx, &Location{UUID: "3890", Name: "Clinic"}); err != nil {
		t.Fatalf("SaveLocation() error: %v", err)
	}
	if f.weight, err = concepts.SaveConcept(ctx, &concept.Concept{Name: "Weight", Datatype: "Numeric"}); err != nil {
		t.Fatalf("SaveConcept() error: %v", err)
	}
	return f
}

func payload(kv ...interface{}) *rest.SimpleObject {
	obj := rest.NewSimpleObject()
	for i := 0; i < len(kv); i += 2 {
		obj.Put(kv[i].(string), kv[i+1])
	}
	return obj
}

func (f *fixture) newEncounter(t *testing.T) string {
	t.Helper()
	obj, err := f.encounter.Create(context.Background(), payload(
		"location", "3890", "encounterType", f.visit.UUID, "encounterDatetime", "2011-01-15",
		"patient", f.patient.UUID, "provider", f.provider.UUID,
	), rest.Ref)
	if err != nil {
		t.Fatalf("Create encounter: %v", err)
	}
	id, _ := obj.Get("uuid")
	return id.(string)
}

func (f *fixture) newObs(t *testing.T, encounterID, value string) string {
	t.Helper()
	obj, err := f.obs.Create(context.Background(), payload(
		"concept", f.weight.UUID, "value", value, "encounter", encounterID,
	), rest.Ref)
	if err != nil {
		t.Fatalf("Create obs: %v", err)
	}
	id, _ := obj.Get("uuid")
	return id.(string)
}

func TestEncounterResource_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.newEncounter(t)

	obj, err := f.encounter.Retrieve(ctx, id, rest.Default)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	want := []string{"uuid", "display", "encounterDatetime", "patient", "location",
		"encounterType", "provider", "obs", "voided", "uri"}
	if !reflect.DeepEqual(obj.Keys(), want) {
		t.Errorf("unexpected keys %v", obj.Keys())
	}
	if v, _ := obj.Get("display"); v != "Adult Return 15/01/2011" {
		t.Errorf("unexpected display %v", v)
	}
	patient, _ := obj.Get("patient")
	if v, _ := patient.(*rest.SimpleObject).Get("display"); v != "100-8 - Ada Lovelace" {
		t.Errorf("unexpected patient display %v", v)
	}
	location, _ := obj.Get("location")
	if v, _ := location.(*rest.SimpleObject).Get("uuid"); v != "3890" {
		t.Errorf("unexpected location %v", v)
	}
	if v, _ := obj.Get("obs"); !reflect.DeepEqual(v, []interface{}{}) {
		t.Errorf("expected no obs, got %v", v)
	}
}

func TestEncounterResource_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name    string
		payload *rest.SimpleObject
		code    rest.Code
	}{
		{"missing patient", payload("encounterType", f.visit.UUID, "encounterDatetime", "2011-01-15"), rest.CodeValidationFailed},
		{"missing type", payload("patient", f.patient.UUID, "encounterDatetime", "2011-01-15"), rest.CodeValidationFailed},
		{"missing datetime", payload("patient", f.patient.UUID, "encounterType", f.visit.UUID), rest.CodeValidationFailed},
		{"future datetime", payload("patient", f.patient.UUID, "encounterType", f.visit.UUID, "encounterDatetime", "2030-01-01"), rest.CodeValidationFailed},
		{"unknown location", payload("patient", f.patient.UUID, "encounterType", f.visit.UUID, "encounterDatetime", "2011-01-15", "location", "nowhere"), rest.CodeConversionFailed},
		{"bad datetime", payload("patient", f.patient.UUID, "encounterType", f.visit.UUID, "encounterDatetime", "15/01/2011"), rest.CodeConversionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.encounter.Create(ctx, tt.payload, rest.Ref)
			if rest.CodeOf(err) != tt.code {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestEncounterResource_PartialUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.newEncounter(t)

	obj, err := f.encounter.Update(ctx, id, payload("encounterDatetime", "2024-01-01 10:00:00"), rest.Default)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if v, _ := obj.Get("encounterDatetime"); v != "2024-01-01T10:00:00.000+0000" {
		t.Errorf("unexpected datetime %v", v)
	}
	stored, err := f.svc.GetEncounter(ctx, id)
	if err != nil {
		t.Fatalf("GetEncounter() error: %v", err)
	}
	if stored.Location.UUID != "3890" || stored.Provider.UUID != f.provider.UUID || stored.Patient.UUID != f.patient.UUID {
		t.Errorf("expected the other references to be untouched, got %+v", stored)
	}
}

func TestObsResource_AttachesToEncounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	encID := f.newEncounter(t)
	obsID := f.newObs(t, encID, "61.5")

	obs, err := f.obs.Retrieve(ctx, obsID, rest.Full)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if v, _ := obs.Get("display"); v != "Weight: 61.5" {
		t.Errorf("unexpected display %v", v)
	}
	if v, _ := obs.Get("obsDatetime"); v != "2011-01-15T00:00:00.000+0000" {
		t.Errorf("expected the encounter datetime, got %v", v)
	}
	nested, _ := obs.Get("person")
	if v, _ := nested.(*rest.SimpleObject).Get("display"); v != "Ada Lovelace" {
		t.Errorf("expected the patient's person, got %v", v)
	}
	enc, _ := obs.Get("encounter")
	if v, _ := enc.(*rest.SimpleObject).Get("display"); v != "Adult Return 15/01/2011" {
		t.Errorf("unexpected encounter display %v", v)
	}

	full, err := f.encounter.Retrieve(ctx, encID, rest.Full)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	list, _ := full.Get("obs")
	items := list.([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected one obs on the encounter, got %d", len(items))
	}
	if v, _ := items[0].(*rest.SimpleObject).Get("value"); v != "61.5" {
		t.Errorf("unexpected obs value %v", v)
	}
}

func TestObsResource_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	encID := f.newEncounter(t)

	_, err := f.obs.Create(ctx, payload("concept", f.weight.UUID, "value", "heavy", "encounter", encID), rest.Ref)
	if rest.CodeOf(err) != rest.CodeValidationFailed {
		t.Errorf("expected a numeric concept to reject text, got %v", err)
	}
	_, err = f.obs.Create(ctx, payload("concept", f.weight.UUID, "value", "60"), rest.Ref)
	if rest.CodeOf(err) != rest.CodeValidationFailed {
		t.Errorf("expected an obs without encounter or person to fail, got %v", err)
	}
	_, err = f.obs.Create(ctx, payload("concept", f.weight.UUID, "value", "60", "person", f.provider.UUID), rest.Ref)
	if err != nil {
		t.Errorf("expected a person-level obs to save, got %v", err)
	}
}

func TestEncounter_VoidCascadesToObs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	encID := f.newEncounter(t)
	obsID := f.newObs(t, encID, "70")

	if err := f.encounter.Delete(ctx, encID, "entered in error"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	o, err := f.svc.GetObs(ctx, obsID)
	if err != nil {
		t.Fatalf("GetObs() error: %v", err)
	}
	if !o.Voided || o.VoidReason != "entered in error" {
		t.Errorf("expected the obs to be voided with the encounter, got %+v", o.VoidInfo)
	}
	_, err = f.obs.Create(ctx, payload("concept", f.weight.UUID, "value", "1", "encounter", encID), rest.Ref)
	if rest.CodeOf(err) != rest.CodeValidationFailed {
		t.Errorf("expected a voided encounter to reject new obs, got %v", err)
	}
}

func TestPurgeDependencies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	encID := f.newEncounter(t)
	obsID := f.newObs(t, encID, "70")

	if err := f.encounter.Purge(ctx, encID); rest.CodeOf(err) != rest.CodeDependencyConflict {
		t.Errorf("expected obs to block the encounter purge, got %v", err)
	}
	if err := f.location.Purge(ctx, "3890"); rest.CodeOf(err) != rest.CodeDependencyConflict {
		t.Errorf("expected the encounter to block the location purge, got %v", err)
	}
	if err := f.types.Purge(ctx, f.visit.UUID); rest.CodeOf(err) != rest.CodeDependencyConflict {
		t.Errorf("expected the encounter to block the type purge, got %v", err)
	}
	if err := f.people.PurgePatient(ctx, f.patient); !errors.Is(err, domain.ErrHasDependents) {
		t.Errorf("expected the encounter to block the patient purge, got %v", err)
	}
	if err := f.people.PurgePerson(ctx, f.provider); !errors.Is(err, domain.ErrHasDependents) {
		t.Errorf("expected the encounter to block the provider purge, got %v", err)
	}
	if err := f.concepts.PurgeConcept(ctx, f.weight); !errors.Is(err, domain.ErrHasDependents) {
		t.Errorf("expected the obs to block the concept purge, got %v", err)
	}

	if err := f.obs.Purge(ctx, obsID); err != nil {
		t.Fatalf("Purge obs: %v", err)
	}
	if err := f.encounter.Purge(ctx, encID); err != nil {
		t.Fatalf("Purge encounter: %v", err)
	}
	if err := f.location.Purge(ctx, "3890"); err != nil {
		t.Errorf("expected the location purge to succeed, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	encID := f.newEncounter(t)
	f.newObs(t, encID, "70")

	for _, q := range []string{"lovelace", "100-8", "adult"} {
		found, err := f.encounter.Search(ctx, q, rest.RequestContext{Representation: rest.Ref, Limit: 10})
		if err != nil {
			t.Fatalf("Search(%q) error: %v", q, err)
		}
		if len(found) != 1 {
			t.Errorf("Search(%q): expected 1 encounter, got %d", q, len(found))
		}
	}
	found, err := f.encounter.Search(ctx, "snow", rest.RequestContext{Representation: rest.Ref, Limit: 10})
	if err != nil || len(found) != 0 {
		t.Errorf("providers are not searched: %v %v", found, err)
	}
	obs, err := f.obs.Search(ctx, "weig", rest.RequestContext{Representation: rest.Default, Limit: 10})
	if err != nil || len(obs) != 1 {
		t.Fatalf("expected one obs by concept name, got %v %v", obs, err)
	}
}

func TestMetadataResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	obj, err := f.types.Create(ctx, payload("name", "Triage", "description", "First contact"), rest.Full)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	want := []string{"uuid", "display", "name", "description", "retired", "auditInfo", "uri"}
	if !reflect.DeepEqual(obj.Keys(), want) {
		t.Errorf("unexpected keys %v", obj.Keys())
	}
	if _, err := f.types.Create(ctx, payload("name", "triage"), rest.Ref); rest.CodeOf(err) != rest.CodeValidationFailed {
		t.Errorf("expected a duplicate type name to fail, got %v", err)
	}
	if err := f.location.Delete(ctx, "3890", "closed"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	loc, _ := f.location.Retrieve(ctx, "3890", rest.Default)
	if v, _ := loc.Get("retired"); v != true {
		t.Errorf("expected the location to be retired, got %v", v)
	}
}
