package encounter

import (
	"time"

	"github.com/ehr/restws/internal/domain"
	"github.com/ehr/restws/internal/domain/concept"
	"github.com/ehr/restws/internal/domain/person"
)

type Location struct {
	UUID        string
	Name        string
	Description string
	domain.Audit
	domain.RetireInfo
}

func (l *Location) clone() *Location {
	cp := *l
	return &cp
}

// LocationRef returns a stub carrying only the uuid.
func LocationRef(l *Location) *Location {
	if l == nil {
		return nil
	}
	return &Location{UUID: l.UUID}
}

type EncounterType struct {
	UUID        string
	Name        string
	Description string
	domain.Audit
	domain.RetireInfo
}

func (t *EncounterType) clone() *EncounterType {
	cp := *t
	return &cp
}

// TypeRef returns a stub carrying only the uuid.
func TypeRef(t *EncounterType) *EncounterType {
	if t == nil {
		return nil
	}
	return &EncounterType{UUID: t.UUID}
}

// Encounter is one clinical interaction. Obs is loaded by the service and
// never persisted with the encounter row.
type Encounter struct {
	UUID              string
	EncounterDatetime time.Time
	Patient           *person.Patient
	Location          *Location
	EncounterType     *EncounterType
	Provider          *person.Person
	Obs               []*Obs
	domain.Audit
	domain.VoidInfo
}

func (e *Encounter) clone() *Encounter {
	cp := *e
	cp.Patient = person.PatientRef(e.Patient)
	cp.Location = LocationRef(e.Location)
	cp.EncounterType = TypeRef(e.EncounterType)
	cp.Provider = person.Ref(e.Provider)
	cp.Obs = nil
	return &cp
}

// Ref returns a stub carrying only the uuid.
func Ref(e *Encounter) *Encounter {
	if e == nil {
		return nil
	}
	return &Encounter{UUID: e.UUID}
}

// Obs is a single observation: a concept and its recorded value.
type Obs struct {
	UUID        string
	Concept     *concept.Concept
	Value       string
	ObsDatetime time.Time
	Encounter   *Encounter
	Person      *person.Person
	domain.Audit
	domain.VoidInfo
}

func (o *Obs) clone() *Obs {
	cp := *o
	cp.Concept = concept.Ref(o.Concept)
	cp.Encounter = Ref(o.Encounter)
	cp.Person = person.Ref(o.Person)
	return &cp
}
