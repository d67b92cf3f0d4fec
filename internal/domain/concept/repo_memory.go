package concept

import (
	"context"

	"github.com/ehr/restws/internal/domain"
)

type conceptMemory struct {
	store *domain.MemoryStore[*Concept]
}

// NewMemoryConceptRepo returns an in-process concept store.
func NewMemoryConceptRepo() ConceptRepository {
	return &conceptMemory{store: domain.NewMemoryStore((*Concept).clone)}
}

func (r *conceptMemory) Get(_ context.Context, uuid string) (*Concept, error) {
	return r.store.Get(uuid)
}

func (r *conceptMemory) Save(_ context.Context, c *Concept) error {
	r.store.Put(c.UUID, c)
	return nil
}

func (r *conceptMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *conceptMemory) Search(_ context.Context, query string) ([]*Concept, error) {
	return r.store.Filter(func(c *Concept) bool { return domain.Matches(query, c.Name) }), nil
}

type descriptionMemory struct {
	store *domain.MemoryStore[*Description]
}

// NewMemoryDescriptionRepo returns an in-process description store.
func NewMemoryDescriptionRepo() DescriptionRepository {
	return &descriptionMemory{store: domain.NewMemoryStore((*Description).clone)}
}

func (r *descriptionMemory) Get(_ context.Context, uuid string) (*Description, error) {
	return r.store.Get(uuid)
}

func (r *descriptionMemory) Save(_ context.Context, d *Description) error {
	r.store.Put(d.UUID, d)
	return nil
}

func (r *descriptionMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *descriptionMemory) ListByConcept(_ context.Context, conceptUUID string) ([]*Description, error) {
	return r.store.Filter(func(d *Description) bool { return ofConcept(d, conceptUUID) }), nil
}

func (r *descriptionMemory) DeleteByConcept(_ context.Context, conceptUUID string) error {
	for _, d := range r.store.Filter(func(d *Description) bool { return ofConcept(d, conceptUUID) }) {
		r.store.Delete(d.UUID)
	}
	return nil
}

func ofConcept(d *Description, conceptUUID string) bool {
	return d.Concept != nil && d.Concept.UUID == conceptUUID
}
