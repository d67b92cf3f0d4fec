package encounter

import (
	"context"
	"strings"

	"github.com/ehr/restws/internal/domain"
)

type locationMemory struct {
	store *domain.MemoryStore[*Location]
}

// NewMemoryLocationRepo returns an in-process location store.
func NewMemoryLocationRepo() LocationRepository {
	return &locationMemory{store: domain.NewMemoryStore((*Location).clone)}
}

func (r *locationMemory) Get(_ context.Context, uuid string) (*Location, error) {
	return r.store.Get(uuid)
}

func (r *locationMemory) Save(_ context.Context, l *Location) error {
	r.store.Put(l.UUID, l)
	return nil
}

func (r *locationMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *locationMemory) Search(_ context.Context, query string) ([]*Location, error) {
	return r.store.Filter(func(l *Location) bool { return domain.Matches(query, l.Name) }), nil
}

type typeMemory struct {
	store *domain.MemoryStore[*EncounterType]
}

// NewMemoryEncounterTypeRepo returns an in-process encounter type store.
func NewMemoryEncounterTypeRepo() EncounterTypeRepository {
	return &typeMemory{store: domain.NewMemoryStore((*EncounterType).clone)}
}

func (r *typeMemory) Get(_ context.Context, uuid string) (*EncounterType, error) {
	return r.store.Get(uuid)
}

func (r *typeMemory) GetByName(_ context.Context, name string) (*EncounterType, error) {
	found := r.store.Filter(func(t *EncounterType) bool { return strings.EqualFold(t.Name, name) })
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return found[0], nil
}

func (r *typeMemory) Save(_ context.Context, t *EncounterType) error {
	r.store.Put(t.UUID, t)
	return nil
}

func (r *typeMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *typeMemory) Search(_ context.Context, query string) ([]*EncounterType, error) {
	return r.store.Filter(func(t *EncounterType) bool { return domain.Matches(query, t.Name) }), nil
}

type encounterMemory struct {
	store *domain.MemoryStore[*Encounter]
}

// NewMemoryEncounterRepo returns an in-process encounter store.
func NewMemoryEncounterRepo() EncounterRepository {
	return &encounterMemory{store: domain.NewMemoryStore((*Encounter).clone)}
}

func (r *encounterMemory) Get(_ context.Context, uuid string) (*Encounter, error) {
	return r.store.Get(uuid)
}

func (r *encounterMemory) Save(_ context.Context, e *Encounter) error {
	r.store.Put(e.UUID, e)
	return nil
}

func (r *encounterMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *encounterMemory) Search(_ context.Context, patientUUIDs, typeUUIDs []string) ([]*Encounter, error) {
	patients := set(patientUUIDs)
	types := set(typeUUIDs)
	return r.store.Filter(func(e *Encounter) bool {
		return (e.Patient != nil && patients[e.Patient.UUID]) ||
			(e.EncounterType != nil && types[e.EncounterType.UUID])
	}), nil
}

func (r *encounterMemory) CountByPatient(_ context.Context, id string) (int, error) {
	return r.store.Count(func(e *Encounter) bool { return e.Patient != nil && e.Patient.UUID == id }), nil
}

func (r *encounterMemory) CountByProvider(_ context.Context, id string) (int, error) {
	return r.store.Count(func(e *Encounter) bool { return e.Provider != nil && e.Provider.UUID == id }), nil
}

func (r *encounterMemory) CountByLocation(_ context.Context, id string) (int, error) {
	return r.store.Count(func(e *Encounter) bool { return e.Location != nil && e.Location.UUID == id }), nil
}

func (r *encounterMemory) CountByType(_ context.Context, id string) (int, error) {
	return r.store.Count(func(e *Encounter) bool { return e.EncounterType != nil && e.EncounterType.UUID == id }), nil
}

type obsMemory struct {
	store *domain.MemoryStore[*Obs]
}

// NewMemoryObsRepo returns an in-process observation store.
func NewMemoryObsRepo() ObsRepository {
	return &obsMemory{store: domain.NewMemoryStore((*Obs).clone)}
}

func (r *obsMemory) Get(_ context.Context, uuid string) (*Obs, error) {
	return r.store.Get(uuid)
}

func (r *obsMemory) Save(_ context.Context, o *Obs) error {
	r.store.Put(o.UUID, o)
	return nil
}

func (r *obsMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *obsMemory) ListByEncounter(_ context.Context, id string) ([]*Obs, error) {
	return r.store.Filter(func(o *Obs) bool { return o.Encounter != nil && o.Encounter.UUID == id }), nil
}

func (r *obsMemory) Search(_ context.Context, conceptUUIDs []string) ([]*Obs, error) {
	concepts := set(conceptUUIDs)
	return r.store.Filter(func(o *Obs) bool { return o.Concept != nil && concepts[o.Concept.UUID] }), nil
}

func (r *obsMemory) CountByEncounter(_ context.Context, id string) (int, error) {
	return r.store.Count(func(o *Obs) bool { return o.Encounter != nil && o.Encounter.UUID == id }), nil
}

func (r *obsMemory) CountByConcept(_ context.Context, id string) (int, error) {
	return r.store.Count(func(o *Obs) bool { return o.Concept != nil && o.Concept.UUID == id }), nil
}

func (r *obsMemory) CountByPerson(_ context.Context, id string) (int, error) {
	return r.store.Count(func(o *Obs) bool { return o.Person != nil && o.Person.UUID == id }), nil
}

func set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
