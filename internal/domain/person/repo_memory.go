package person

import (
	"context"
	"strings"

	"github.com/ehr/restws/internal/domain"
)

type personMemory struct {
	store *domain.MemoryStore[*Person]
}

// NewMemoryPersonRepo returns an in-process person store.
func NewMemoryPersonRepo() PersonRepository {
	return &personMemory{store: domain.NewMemoryStore((*Person).clone)}
}

func (r *personMemory) Get(_ context.Context, uuid string) (*Person, error) {
	return r.store.Get(uuid)
}

func (r *personMemory) Save(_ context.Context, p *Person) error {
	r.store.Put(p.UUID, p)
	return nil
}

func (r *personMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *personMemory) Search(_ context.Context, query string) ([]*Person, error) {
	return r.store.Filter(func(p *Person) bool {
		return domain.Matches(query, p.FullName())
	}), nil
}

type patientMemory struct {
	store   *domain.MemoryStore[*Patient]
	persons PersonRepository
}

// NewMemoryPatientRepo returns an in-process patient store. persons is
// consulted for name searches.
func NewMemoryPatientRepo(persons PersonRepository) PatientRepository {
	return &patientMemory{store: domain.NewMemoryStore((*Patient).clone), persons: persons}
}

func (r *patientMemory) Get(_ context.Context, uuid string) (*Patient, error) {
	return r.store.Get(uuid)
}

func (r *patientMemory) GetByIdentifier(_ context.Context, identifier string) (*Patient, error) {
	found := r.store.Filter(func(p *Patient) bool { return strings.EqualFold(p.Identifier, identifier) })
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return found[0], nil
}

func (r *patientMemory) Save(_ context.Context, p *Patient) error {
	r.store.Put(p.UUID, p)
	return nil
}

func (r *patientMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *patientMemory) Search(ctx context.Context, query string) ([]*Patient, error) {
	named := make(map[string]bool)
	people, err := r.persons.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, p := range people {
		named[p.UUID] = true
	}
	return r.store.Filter(func(p *Patient) bool {
		return domain.Matches(query, p.Identifier) || (p.Person != nil && named[p.Person.UUID])
	}), nil
}

func (r *patientMemory) CountByPerson(_ context.Context, personUUID string) (int, error) {
	return r.store.Count(func(p *Patient) bool {
		return p.Person != nil && p.Person.UUID == personUUID
	}), nil
}
